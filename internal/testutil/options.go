package testutil

import "github.com/zjrosen/pagetypes/internal/element"

// RecordOption configures a record built by Record.
type RecordOption func(element.Record)

// Record builds a record titled like its name unless overridden.
func Record(name string, opts ...RecordOption) element.Record {
	rec := element.Record{element.KeyName: name, element.KeyTitle: name}
	for _, opt := range opts {
		opt(rec)
	}
	return rec
}

// Title sets the title.
func Title(title string) RecordOption {
	return func(r element.Record) { r[element.KeyTitle] = title }
}

// Public sets the public flag.
func Public() RecordOption {
	return func(r element.Record) { r[element.KeyPublic] = true }
}

// Hidden keeps the record out of the sidebar.
func Hidden() RecordOption {
	return func(r element.Record) { r[element.KeyHidden] = true }
}

// Topic sets the topic.
func Topic(topic string) RecordOption {
	return func(r element.Record) { r[element.KeyTopic] = topic }
}

// Elements sets container children.
func Elements(els ...any) RecordOption {
	return func(r element.Record) { r[element.KeyElements] = els }
}

// Context sets the intrinsic context.
func Context(ctx map[string]any) RecordOption {
	return func(r element.Record) { r[element.KeyContext] = ctx }
}

// SingleInfos sets the single infos.
func SingleInfos(infos ...string) RecordOption {
	return func(r element.Record) { r[element.KeySingleInfos] = infos }
}

// Attr sets an arbitrary attribute.
func Attr(key string, value any) RecordOption {
	return func(r element.Record) { r[key] = value }
}
