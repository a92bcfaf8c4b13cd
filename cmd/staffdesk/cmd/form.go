package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/staffdesk/staffdesk/internal/catalog"
)

// errAborted is returned when the user cancels a form.
var errAborted = errors.New("cancelled")

// promptValues asks for every form field of res. With partial set, a
// blank answer leaves the field out so an update keeps its value.
func promptValues(ctx context.Context, res catalog.Resource, partial bool) (map[string]string, error) {
	answers := make([]string, len(res.Form))
	fields := make([]huh.Field, 0, len(res.Form))
	for i, f := range res.Form {
		fields = append(fields, formField(f, &answers[i], partial))
	}

	title := "New " + res.Noun
	if partial {
		title = "Edit " + res.Noun
	}
	form := huh.NewForm(huh.NewGroup(fields...).Title(title))
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, errAborted
		}
		return nil, fmt.Errorf("run form: %w", err)
	}

	values := make(map[string]string, len(res.Form))
	for i, f := range res.Form {
		v := strings.TrimSpace(answers[i])
		if partial && v == "" {
			continue
		}
		values[f.Name] = v
	}
	return values, nil
}

func formField(f catalog.FormField, value *string, partial bool) huh.Field {
	title := f.Label
	if f.Required() && !partial {
		title += " *"
	}

	if len(f.Choices) > 0 {
		opts := make([]huh.Option[string], 0, len(f.Choices)+1)
		if partial {
			opts = append(opts, huh.NewOption("(unchanged)", ""))
		}
		for _, c := range f.Choices {
			opts = append(opts, huh.NewOption(c, c))
		}
		return huh.NewSelect[string]().
			Title(title).
			Options(opts...).
			Value(value)
	}

	input := huh.NewInput().
		Title(title).
		Placeholder(f.Placeholder).
		Value(value).
		Validate(func(s string) error {
			if partial && strings.TrimSpace(s) == "" {
				return nil
			}
			return f.ValidateValue(s)
		})
	if partial {
		input.Description("Leave blank to keep the current value")
	}
	return input
}
