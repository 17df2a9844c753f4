// Package quizcli runs the debt quiz wizard in a terminal.
package quizcli

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("quiz aborted")

// Prompter asks the user questions. Indices refer to options.
type Prompter interface {
	Select(msg string, options []string, def int) (int, error)
	MultiSelect(msg, help string, options []string, defaults []int) ([]int, error)
	Input(msg, def string, validate func(string) error) (string, error)
	Confirm(msg string, def bool) (bool, error)
	Info(msg string)
}

// SurveyPrompter prompts on the controlling terminal.
type SurveyPrompter struct {
	Out io.Writer
}

func (p *SurveyPrompter) Select(msg string, options []string, def int) (int, error) {
	prompt := &survey.Select{Message: msg, Options: options, PageSize: 15}
	if def >= 0 && def < len(options) {
		prompt.Default = options[def]
	}
	var out string
	if err := survey.AskOne(prompt, &out); err != nil {
		return 0, translate(err)
	}
	return slices.Index(options, out), nil
}

func (p *SurveyPrompter) MultiSelect(msg, help string, options []string, defaults []int) ([]int, error) {
	prompt := &survey.MultiSelect{Message: msg, Help: help, Options: options, PageSize: 15}
	if len(defaults) > 0 {
		def := make([]string, 0, len(defaults))
		for _, i := range defaults {
			def = append(def, options[i])
		}
		prompt.Default = def
	}
	var out []string
	if err := survey.AskOne(prompt, &out); err != nil {
		return nil, translate(err)
	}
	idx := make([]int, 0, len(out))
	for _, o := range out {
		idx = append(idx, slices.Index(options, o))
	}
	return idx, nil
}

func (p *SurveyPrompter) Input(msg, def string, validate func(string) error) (string, error) {
	var opts []survey.AskOpt
	if validate != nil {
		opts = append(opts, survey.WithValidator(func(ans any) error {
			s, _ := ans.(string)
			return validate(s)
		}))
	}
	var out string
	if err := survey.AskOne(&survey.Input{Message: msg, Default: def}, &out, opts...); err != nil {
		return "", translate(err)
	}
	return out, nil
}

func (p *SurveyPrompter) Confirm(msg string, def bool) (bool, error) {
	var out bool
	if err := survey.AskOne(&survey.Confirm{Message: msg, Default: def}, &out); err != nil {
		return false, translate(err)
	}
	return out, nil
}

func (p *SurveyPrompter) Info(msg string) {
	_, _ = fmt.Fprintln(p.Out, msg)
}

func translate(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
