package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/sheetpub/internal/wordpress"
)

// Validate reports every missing or invalid setting in one error.
func (c *Config) Validate() error {
	var missing []string
	var invalid []string

	if c.Sheet.SpreadsheetID == "" {
		missing = append(missing, "GOOGLE_SPREADSHEET_ID")
	}
	if c.Google.JSON == "" && c.Google.File == "" {
		missing = append(missing, "GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	default:
		invalid = append(invalid, fmt.Sprintf("LLM_PROVIDER %q (want openai or gemini)", c.LLM.Provider))
	}

	if c.WordPress.BaseURL == "" {
		missing = append(missing, "WORDPRESS_BASE_URL")
	}
	switch c.WordPress.AuthMethod {
	case wordpress.AuthApplicationPassword, "":
		if c.WordPress.User == "" {
			missing = append(missing, "WORDPRESS_USER")
		}
		if c.WordPress.Password == "" {
			missing = append(missing, "WORDPRESS_PASSWORD")
		}
	case wordpress.AuthJWT:
		if c.WordPress.JWTToken == "" {
			missing = append(missing, "WORDPRESS_JWT_TOKEN")
		}
	default:
		invalid = append(invalid, fmt.Sprintf("WORDPRESS_AUTH_METHOD %q (want application_password or jwt)", c.WordPress.AuthMethod))
	}

	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		invalid = append(invalid, fmt.Sprintf("GENERATION_TEMPERATURE %v (want 0..2)", c.Generation.Temperature))
	}
	if c.Status.Done == "" || c.Status.Duplicate == "" || c.Status.Error == "" {
		invalid = append(invalid, "status vocabulary must not be empty")
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required settings: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid settings: "+strings.Join(invalid, "; "))
	}
	if len(parts) == 0 {
		return nil
	}
	return errors.New(strings.Join(parts, "; "))
}
