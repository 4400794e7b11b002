package outreach

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/osteele/liquid"

	"github.com/ignite/leadharvest/internal/domain"
)

// TemplateService renders message templates with Liquid. Parsed templates
// are cached by source text.
type TemplateService struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewTemplateService creates a template service with the message filters.
func NewTemplateService() *TemplateService {
	ts := &TemplateService{engine: liquid.NewEngine()}

	// {{ city | default: "вашего города" }}
	ts.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" {
			return defaultVal
		}
		return value
	})

	return ts
}

// Placeholders are the variables available to a message template.
var Placeholders = []string{"first_name", "last_name", "name", "city", "age", "id", "url"}

var legacyPlaceholder = regexp.MustCompile(`\{+\s*([a-z_]+)\s*\}+`)

// Normalize rewrites single-brace placeholders such as {first_name} into
// Liquid output tags. Unknown names and existing {{ }} tags are left alone.
func Normalize(tpl string) string {
	return legacyPlaceholder.ReplaceAllStringFunc(tpl, func(m string) string {
		if strings.HasPrefix(m, "{{") || strings.HasSuffix(m, "}}") {
			return m
		}
		name := strings.TrimSpace(strings.Trim(m, "{}"))
		for _, p := range Placeholders {
			if p == name {
				return "{{ " + name + " }}"
			}
		}
		return m
	})
}

// Bindings builds the template variables for a candidate. Unknown values
// are empty strings.
func Bindings(c *domain.Candidate, now time.Time) map[string]interface{} {
	age := ""
	if a, ok := c.Age(now); ok {
		age = strconv.Itoa(a)
	}
	url := c.ProfileURL
	if url == "" {
		url = domain.ProfileURL(c.ID)
	}
	return map[string]interface{}{
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"name":       c.FullName(),
		"city":       c.CityTitle,
		"age":        age,
		"id":         c.ID,
		"url":        url,
	}
}

// Parse checks that a template compiles.
func (ts *TemplateService) Parse(tpl string) error {
	_, err := ts.template(tpl)
	return err
}

func (ts *TemplateService) template(tpl string) (*liquid.Template, error) {
	if cached, ok := ts.cache.Load(tpl); ok {
		return cached.(*liquid.Template), nil
	}
	parsed, err := ts.engine.ParseString(Normalize(tpl))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	ts.cache.Store(tpl, parsed)
	return parsed, nil
}

// Render renders tpl for c.
func (ts *TemplateService) Render(tpl string, c *domain.Candidate, now time.Time) (string, error) {
	parsed, err := ts.template(tpl)
	if err != nil {
		return "", err
	}
	out, rerr := parsed.RenderString(Bindings(c, now))
	if rerr != nil {
		log.Printf("[Outreach] template render error for %d: %v", c.ID, rerr)
		return "", fmt.Errorf("render template: %w", rerr)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyMessage
	}
	return out, nil
}
