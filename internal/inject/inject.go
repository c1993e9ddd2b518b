// Package inject places transcribed text into the focused application.
// The text always lands on the clipboard; auto-paste additionally taps
// the platform paste chord so dictation flows without a manual paste.
package inject

import (
	"fmt"
	"runtime"

	"github.com/go-vgo/robotgo"
)

// Injector copies text to the clipboard and optionally pastes it.
type Injector struct {
	autoPaste bool
}

// New creates an Injector. With autoPaste false the text is only
// copied to the clipboard.
func New(autoPaste bool) *Injector {
	return &Injector{autoPaste: autoPaste}
}

// Inject delivers text to the active application. Empty text is a
// no-op so a silent recording never clobbers the clipboard.
func (inj *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}

	if err := robotgo.WriteAll(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}
	if !inj.autoPaste {
		return nil
	}

	mod := "ctrl"
	if runtime.GOOS == "darwin" {
		mod = "cmd"
	}
	if err := robotgo.KeyTap("v", mod); err != nil {
		return fmt.Errorf("inject: key tap %s+v: %w", mod, err)
	}
	return nil
}
