package kafka

import "fmt"

// TopicPrefix prefixes every topic this module produces or consumes.
const TopicPrefix = "trolley"

// Topic builds a fully qualified topic name such as "trolley.cart.updated".
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}
