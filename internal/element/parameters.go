package element

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// FieldKind selects the form control of a parameter.
type FieldKind string

const (
	FieldID       FieldKind = "id"
	FieldText     FieldKind = "text"
	FieldTextArea FieldKind = "textarea"
	FieldCheckbox FieldKind = "checkbox"
	FieldInfoList FieldKind = "infolist"
)

// Field describes how one parameter is edited.
type Field struct {
	Kind       FieldKind `json:"kind"`
	Title      string    `json:"title"`
	Label      string    `json:"label,omitempty"`
	Help       string    `json:"help,omitempty"`
	AllowEmpty bool      `json:"allow_empty,omitempty"`
	// Choices restricts FieldInfoList values.
	Choices []string `json:"choices,omitempty"`
}

// Parameter is one editable attribute of a type.
type Parameter struct {
	Topic string  `json:"topic"`
	Order float64 `json:"order"`
	Key   string  `json:"key"`
	Field Field   `json:"field"`
}

// ParameterEnv is what contributors may consult.
type ParameterEnv struct {
	Type *Type
	// HasOverriding reports whether the acting user holds general.<how>_<type>.
	HasOverriding func(how string) bool
}

// ParameterContributor adds parameters to a type's edit form.
type ParameterContributor func(ParameterEnv) []Parameter

const generalProperties = "General Properties"

func baseParameters(env ParameterEnv) []Parameter {
	return []Parameter{
		{Topic: generalProperties, Order: 1.1, Key: KeyName, Field: Field{
			Kind:  FieldID,
			Title: "Unique ID",
			Help: "The ID will be used to identify this page in URLs. If this page has the same ID as a builtin page of the type " +
				env.Type.Phrase("title") + " then it will shadow the builtin one.",
		}},
		{Topic: generalProperties, Order: 1.2, Key: KeyTitle, Field: Field{Kind: FieldText, Title: "Title"}},
		{Topic: generalProperties, Order: 1.3, Key: KeyDescription, Field: Field{
			Kind: FieldTextArea, Title: "Description", AllowEmpty: true,
			Help: "The description is optional and can be used for explanations or documentation",
		}},
	}
}

func overridableParameters(env ParameterEnv) []Parameter {
	if env.HasOverriding == nil || !env.HasOverriding("publish") {
		return nil
	}
	return []Parameter{
		{Topic: generalProperties, Order: 2.2, Key: KeyPublic, Field: Field{
			Kind: FieldCheckbox, Title: "Visibility", Label: "Make available for all users",
		}},
	}
}

func renderableParameters(ParameterEnv) []Parameter {
	return []Parameter{
		{Topic: generalProperties, Order: 1.4, Key: KeyTopic, Field: Field{Kind: FieldText, Title: "Topic"}},
		{Topic: generalProperties, Order: 2.0, Key: KeyHidden, Field: Field{
			Kind: FieldCheckbox, Title: "Sidebar integration", Label: "Do not add a link to this page in sidebar",
		}},
	}
}

func contextAwareParameters(env ParameterEnv) []Parameter {
	return []Parameter{
		{Topic: "Context", Order: 3.1, Key: KeySingleInfos, Field: Field{
			Kind: FieldInfoList, Title: "Specific objects", AllowEmpty: true, Choices: env.Type.Infos(),
			Help: "The page can only be shown when these objects are specified in its context.",
		}},
	}
}

// CollectParameters evaluates all contributors of env.Type. Parameters are
// sorted by order within their topic and topics by their smallest order.
func CollectParameters(env ParameterEnv) []Parameter {
	byTopic := make(map[string][]Parameter)
	var topics []string
	for _, c := range env.Type.parameters {
		for _, p := range c(env) {
			if _, ok := byTopic[p.Topic]; !ok {
				topics = append(topics, p.Topic)
			}
			byTopic[p.Topic] = append(byTopic[p.Topic], p)
		}
	}
	for _, ps := range byTopic {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Order < ps[j].Order })
	}
	sort.SliceStable(topics, func(i, j int) bool {
		return byTopic[topics[i]][0].Order < byTopic[topics[j]][0].Order
	})
	var out []Parameter
	for _, topic := range topics {
		out = append(out, byTopic[topic]...)
	}
	return out
}

var idRe = regexp.MustCompile(`^[a-zA-Z_][-a-zA-Z0-9_]*$`)

// Validate checks and normalizes values against params. The returned
// record holds only parameter keys; checkbox values are coerced to bool.
func Validate(params []Parameter, values Record) (Record, []*ValidationError) {
	out := make(Record, len(params))
	var errs []*ValidationError
	for _, p := range params {
		raw, present := values[p.Key]
		v, err := coerce(p.Field, raw, present)
		if err != nil {
			errs = append(errs, &ValidationError{Field: p.Key, Message: err.Error()})
			continue
		}
		if v != nil {
			out[p.Key] = v
		}
	}
	return out, errs
}

func coerce(f Field, raw any, present bool) (any, error) {
	switch f.Kind {
	case FieldCheckbox:
		switch v := raw.(type) {
		case nil:
			return false, nil
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(v) {
			case "on", "true", "1", "yes":
				return true, nil
			case "", "off", "false", "0", "no":
				return false, nil
			}
		}
		return nil, fmt.Errorf("expected a boolean")
	case FieldInfoList:
		var list []string
		switch v := raw.(type) {
		case nil:
		case []string:
			list = slices.Clone(v)
		case []any:
			for _, e := range v {
				list = append(list, fmt.Sprint(e))
			}
		case string:
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					list = append(list, s)
				}
			}
		default:
			return nil, fmt.Errorf("expected a list")
		}
		for _, s := range list {
			if len(f.Choices) > 0 && !slices.Contains(f.Choices, s) {
				return nil, fmt.Errorf("unknown info %q", s)
			}
		}
		if list == nil {
			list = []string{}
		}
		return list, nil
	}

	var s string
	switch v := raw.(type) {
	case nil:
	case string:
		s = v
	default:
		s = fmt.Sprint(v)
	}
	if f.Kind == FieldID {
		if !idRe.MatchString(s) {
			return nil, fmt.Errorf("an identifier must start with a letter or underscore and contain only letters, digits, underscores and dashes")
		}
		return s, nil
	}
	if strings.TrimSpace(s) == "" && !f.AllowEmpty {
		return nil, fmt.Errorf("please enter a value")
	}
	if !present && f.AllowEmpty {
		return "", nil
	}
	return s, nil
}
