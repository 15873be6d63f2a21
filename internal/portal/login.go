package portal

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LoginOutcome classifies the page reached after authenticating.
type LoginOutcome int

const (
	LoginAuthenticated LoginOutcome = iota
	LoginInvalidCredentials
	LoginSystemError
	LoginUnknownSystemError
)

// String returns the string representation of the outcome
func (o LoginOutcome) String() string {
	switch o {
	case LoginAuthenticated:
		return "Authenticated"
	case LoginInvalidCredentials:
		return "InvalidCredentials"
	case LoginSystemError:
		return "SystemError"
	case LoginUnknownSystemError:
		return "UnknownSystemError"
	default:
		return "Unknown"
	}
}

// LoginPage is the part of the landing page that decides the outcome.
// Heading and Detail are empty when the elements are missing or blank.
type LoginPage struct {
	Title   string
	Heading string
	Detail  string
}

// LoginResult is the tagged result of ClassifyLogin. Message and Details are
// only set for LoginSystemError.
type LoginResult struct {
	Outcome LoginOutcome
	Message string
	Details string
}

// Authenticated reports whether the portal accepted the credentials.
func (r LoginResult) Authenticated() bool {
	return r.Outcome == LoginAuthenticated
}

// Err converts a failed outcome into its portal error; nil when authenticated.
func (r LoginResult) Err() error {
	switch r.Outcome {
	case LoginAuthenticated:
		return nil
	case LoginInvalidCredentials:
		return ErrInvalidCredentials
	case LoginSystemError:
		return NewSystemError(r.Message, r.Details)
	default:
		return ErrUnknownSystem
	}
}

// ParseLoginPage reads the title and the error heading/detail pair.
func ParseLoginPage(html string) (LoginPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return LoginPage{}, fmt.Errorf("failed to parse login page: %w", err)
	}

	return LoginPage{
		Title:   strings.TrimSpace(doc.Find("title").First().Text()),
		Heading: innerText(doc.Find(errorHeading).First()),
		Detail:  innerText(doc.Find(errorDetail).First()),
	}, nil
}

// ClassifyLogin maps a landing page to exactly one outcome. Known titles are
// matched exactly and take precedence over any error elements on the page.
func ClassifyLogin(p LoginPage) LoginResult {
	switch p.Title {
	case TitleHome:
		return LoginResult{Outcome: LoginAuthenticated}
	case TitleUnauthorized:
		return LoginResult{Outcome: LoginInvalidCredentials}
	case TitleCorrupted:
		return LoginResult{Outcome: LoginUnknownSystemError}
	}

	if p.Heading != "" && p.Detail != "" {
		return LoginResult{
			Outcome: LoginSystemError,
			Message: p.Heading,
			Details: p.Detail,
		}
	}
	return LoginResult{Outcome: LoginUnknownSystemError}
}
