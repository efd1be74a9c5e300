// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Prompter asks the user for input. Tests replace it.
type Prompter interface {
	Confirm(message string) (bool, error)
	Secret(message string) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Confirm(message string) (bool, error) {
	if err := RequiresTTY("confirm"); err != nil {
		return false, err
	}
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message}, &ok)
	if errors.Is(err, terminal.InterruptErr) {
		return false, nil
	}
	return ok, err
}

func (surveyPrompter) Secret(message string) (string, error) {
	if err := RequiresTTY("read a secret"); err != nil {
		return "", err
	}
	var value string
	err := survey.AskOne(&survey.Password{Message: message}, &value, survey.WithValidator(survey.Required))
	return strings.TrimSpace(value), err
}

// RequireConfirmation returns true when yes is set, otherwise asks.
// Without a terminal the --yes flag is mandatory.
func (c *CLI) RequireConfirmation(yes bool, action string) (bool, error) {
	if yes {
		return true, nil
	}
	ok, err := c.prompt.Confirm("Are you sure you want to " + action + "?")
	var tty *TTYRequiredError
	if errors.As(err, &tty) {
		return false, usageErrorf("%s requires --yes when stdin is not a terminal", action)
	}
	return ok, err
}
