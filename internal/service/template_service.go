// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/unclebandit/audience-campaigns/internal/model"
)

// RenderTemplate replaces every {key} in template with data[key]. Unknown
// placeholders are left as written.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// CustomerPlaceholders exposes the customer fields a campaign message may
// reference.
func CustomerPlaceholders(c *model.Customer) map[string]string {
	return map[string]string{
		"name":  c.Name,
		"email": c.Email,
		"phone": c.Phone,
	}
}
