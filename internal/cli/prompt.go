package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/law-makers/guc/internal/app"
	"github.com/law-makers/guc/pkg/models"
	"github.com/manifoldco/promptui"
)

// promptFunc asks for a value; mask hides the input. Replaced in tests.
var promptFunc = func(label string, mask bool) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("required")
			}
			return nil
		},
	}
	if mask {
		prompt.Mask = '*'
	}
	v, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	return v, nil
}

// username resolves the portal username from config, then the prompt.
func username(a *app.Application) (string, error) {
	if a.Config.Username != "" {
		return a.Config.Username, nil
	}
	u, err := promptFunc("Username", false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(u), nil
}

// credentials resolves the username and takes the password from GUC_PASSWORD
// or a masked prompt.
func credentials(a *app.Application) (models.Credentials, error) {
	user, err := username(a)
	if err != nil {
		return models.Credentials{}, err
	}

	password := os.Getenv("GUC_PASSWORD")
	if password == "" {
		password, err = promptFunc("Password for "+user, true)
		if err != nil {
			return models.Credentials{}, err
		}
	}
	return models.Credentials{Username: user, Password: password}, nil
}
