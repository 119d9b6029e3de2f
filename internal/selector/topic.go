package selector

import (
	"slices"
	"sort"
)

// TopicOrder is the display priority of topics. Unknown topics go last.
var TopicOrder = []string{
	"Overview",
	"Hosts",
	"Host Groups",
	"Services",
	"Service Groups",
	"Metrics",
	"Business Intelligence",
	"Problems",
	"Other",
}

const unknownTopicRank = 999

// TopicRank returns the position of topic in TopicOrder.
func TopicRank(topic string) int {
	if i := slices.Index(TopicOrder, topic); i >= 0 {
		return i
	}
	return unknownTopicRank
}

// TopicGroup is a run of items sharing a topic.
type TopicGroup[T any] struct {
	Topic string
	Items []T
}

// GroupByTopic groups items by topic. Groups start in first-appearance
// order and are then stably sorted by TopicRank, so unknown topics keep
// their relative order after all known ones.
func GroupByTopic[T any](items []T, topicOf func(T) string) []TopicGroup[T] {
	var groups []TopicGroup[T]
	index := make(map[string]int)
	for _, item := range items {
		topic := topicOf(item)
		i, ok := index[topic]
		if !ok {
			i = len(groups)
			index[topic] = i
			groups = append(groups, TopicGroup[T]{Topic: topic})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return TopicRank(groups[a].Topic) < TopicRank(groups[b].Topic)
	})
	return groups
}
