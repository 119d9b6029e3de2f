package presentation

import (
	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/selector"
)

// TypeDTO represents an element type for presentation
type TypeDTO struct {
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Capabilities string   `json:"capabilities"`
	Topic        string   `json:"default_topic"`
	Infos        []string `json:"infos,omitempty"`
	SingleInfos  []string `json:"single_infos,omitempty"`
	Builtins     int      `json:"builtins"`
}

// FromType converts an element type to a DTO.
func FromType(t *element.Type) TypeDTO {
	return TypeDTO{
		Name:         t.Name(),
		Title:        t.Phrase("title_plural"),
		Capabilities: t.Capabilities().String(),
		Topic:        t.DefaultTopic(),
		Infos:        t.Infos(),
		SingleInfos:  t.SingleInfos(),
		Builtins:     len(t.Builtins()),
	}
}

// FromTypes converts element types to DTOs.
func FromTypes(types []*element.Type) []TypeDTO {
	dtos := make([]TypeDTO, len(types))
	for i, t := range types {
		dtos[i] = FromType(t)
	}
	return dtos
}

// PageDTO is one row of a listing
type PageDTO struct {
	Group  string `json:"group"`
	Name   string `json:"name"`
	Title  string `json:"title"`
	Owner  string `json:"owner,omitempty"`
	Public bool   `json:"public"`
	Hidden bool   `json:"hidden"`
	URL    string `json:"url,omitempty"`
}

// FromPageList flattens the groups of a listing page.
func FromPageList(list *element.PageList) []PageDTO {
	dtos := make([]PageDTO, 0)
	for _, g := range list.Groups {
		for _, item := range g.Items {
			dtos = append(dtos, PageDTO{
				Group:  g.Title,
				Name:   item.Name,
				Title:  item.Title,
				Owner:  item.Owner,
				Public: item.Public,
				Hidden: item.Hidden,
				URL:    item.URL,
			})
		}
	}
	return dtos
}

// SelectorDTO represents a selector for presentation
type SelectorDTO struct {
	Topic     string   `json:"topic"`
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	Info      string   `json:"info"`
	Variables []string `json:"variables"`
}

// FromSelectorGroups flattens selectors grouped by topic.
func FromSelectorGroups(groups []selector.TopicGroup[selector.Selector]) []SelectorDTO {
	dtos := make([]SelectorDTO, 0)
	for _, g := range groups {
		for _, s := range g.Items {
			dtos = append(dtos, SelectorDTO{
				Topic:     g.Topic,
				Name:      s.Name(),
				Title:     s.Title(),
				Info:      s.Info(),
				Variables: s.Variables(),
			})
		}
	}
	return dtos
}
