package topic

import (
	"errors"
	"fmt"
)

var ErrGrammarRejected = errors.New("topic: grammar rejected")

// Rule names the grammar rule a topic broke.
type Rule string

const (
	RuleKind                    Rule = "kind must be entity, property or propertyvalue"
	RuleMultiLevelNotLast       Rule = "multi level wildcard must be the last token"
	RuleEntityTokenCount        Rule = "entity token count must be 4 or 5"
	RuleEntityID                Rule = "entity fourth token must be an entity id or wildcard"
	RuleEntityParentID          Rule = "entity fourth token must be an entity id"
	RuleEntityWildcardTail      Rule = "entity fifth token must be a wildcard"
	RulePropertyTokenCount      Rule = "property token count must be 5 or 6"
	RulePropertyName            Rule = "property fourth token must be a property name or single level wildcard"
	RulePropertyEntityID        Rule = "property fifth token must be an entity id or wildcard"
	RulePropertyParentID        Rule = "property fifth token must be an entity id"
	RulePropertyWildcardTail    Rule = "property sixth token must be a wildcard"
	RuleWritePropertyTokenCount Rule = "writeproperty topic must be {realm}/{clientId}/writeproperty"
	RuleWriteValueTokenCount    Rule = "writepropertyvalue topic must be {realm}/{clientId}/writepropertyvalue/{name}/{entityId}"
	RuleWriteValuePropertyName  Rule = "writepropertyvalue fourth token must be a property name"
	RuleWriteValueEntityID      Rule = "writepropertyvalue fifth token must be an entity id"
)

// Rejection describes why a topic was refused. It unwraps to ErrGrammarRejected.
type Rejection struct {
	Topic string
	Rule  Rule
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("topic: %s: topic=%q", r.Rule, r.Topic)
}

func (r *Rejection) Unwrap() error {
	return ErrGrammarRejected
}

func reject(t Topic, rule Rule) error {
	return &Rejection{Topic: t.raw, Rule: rule}
}

// CanSubscribe reports whether t is a valid subscribe topic.
func CanSubscribe(t Topic) bool {
	return SubscribeRejection(t) == nil
}

// CanPublish reports whether t is a valid publish topic.
func CanPublish(t Topic) bool {
	return PublishRejection(t) == nil
}

// SubscribeRejection returns nil for a valid subscribe topic, otherwise a
// *Rejection naming the first rule the topic breaks.
func SubscribeRejection(t Topic) error {
	if !t.kind.IsSubscription() {
		return reject(t, RuleKind)
	}
	for i := 0; i < len(t.tokens)-1; i++ {
		if t.tokens[i] == MultiLevelWildcard {
			return reject(t, RuleMultiLevelNotLast)
		}
	}
	if t.kind == KindEntity {
		return entitySubscribeRejection(t)
	}
	return propertySubscribeRejection(t)
}

func entitySubscribeRejection(t Topic) error {
	switch len(t.tokens) {
	case 4:
		if !IsEntityID(t.tokens[3]) && !IsWildcard(t.tokens[3]) {
			return reject(t, RuleEntityID)
		}
	case 5:
		if !IsEntityID(t.tokens[3]) {
			return reject(t, RuleEntityParentID)
		}
		if !IsWildcard(t.tokens[4]) {
			return reject(t, RuleEntityWildcardTail)
		}
	default:
		return reject(t, RuleEntityTokenCount)
	}
	return nil
}

func propertySubscribeRejection(t Topic) error {
	if len(t.tokens) != 5 && len(t.tokens) != 6 {
		return reject(t, RulePropertyTokenCount)
	}
	name := t.tokens[3]
	if name == "" || name == MultiLevelWildcard {
		return reject(t, RulePropertyName)
	}
	if len(t.tokens) == 5 {
		if !IsEntityID(t.tokens[4]) && !IsWildcard(t.tokens[4]) {
			return reject(t, RulePropertyEntityID)
		}
		return nil
	}
	if !IsEntityID(t.tokens[4]) {
		return reject(t, RulePropertyParentID)
	}
	if !IsWildcard(t.tokens[5]) {
		return reject(t, RulePropertyWildcardTail)
	}
	return nil
}

// PublishRejection returns nil for a valid publish topic. Kinds other than
// the two write kinds are not restricted here.
func PublishRejection(t Topic) error {
	switch t.kind {
	case KindPropertyWrite:
		if len(t.tokens) != 3 {
			return reject(t, RuleWritePropertyTokenCount)
		}
	case KindPropertyValueWrite:
		if len(t.tokens) != 5 {
			return reject(t, RuleWriteValueTokenCount)
		}
		if t.tokens[3] == "" || IsWildcard(t.tokens[3]) {
			return reject(t, RuleWriteValuePropertyName)
		}
		if !IsEntityID(t.tokens[4]) {
			return reject(t, RuleWriteValueEntityID)
		}
	}
	return nil
}
