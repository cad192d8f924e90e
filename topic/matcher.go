// Package topic implements MQTT 3.1.1 topic filter matching (§4.4) and the
// subscription registry that maps topic filters to subscriber client IDs.
package topic

import "strings"

// matchTopicFilter matches a topic filter against a published topic per
// the MQTT 3.1.1 rules in §4.4: '+' matches exactly one level, '#' matches
// zero or more trailing levels and is only legal as the last level, and
// topics beginning with '$' are excluded from filters whose first level is
// '+' or '#'.
func matchTopicFilter(filter, topic string) bool {
	filterLevels := splitTopicLevels(filter)
	topicLevels := splitTopicLevels(topic)

	if strings.HasPrefix(topic, "$") && len(filterLevels) > 0 {
		first := filterLevels[0]
		if first == "#" || first == "+" {
			return false
		}
	}

	if filter == topic {
		return true
	}

	return matchLevels(filterLevels, topicLevels)
}

func matchLevels(filterLevels, topicLevels []string) bool {
	filterLen := len(filterLevels)
	topicLen := len(topicLevels)

	fi := 0
	ti := 0

	for fi < filterLen && ti < topicLen {
		filterLevel := filterLevels[fi]
		topicLevel := topicLevels[ti]

		if filterLevel == "#" {
			return true
		}

		if filterLevel == "+" {
			fi++
			ti++
			continue
		}

		if filterLevel != topicLevel {
			return false
		}

		fi++
		ti++
	}

	if fi < filterLen {
		return filterLen-fi == 1 && filterLevels[fi] == "#"
	}

	return ti == topicLen
}
