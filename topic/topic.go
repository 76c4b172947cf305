// Package topic implements the bridge topic grammar: tokenizing, resource
// kind classification, subscribe/publish validation and the slot template
// used to render concrete topics for delivered events.
package topic

import (
	"regexp"
	"strings"
)

const (
	Separator           = "/"
	SingleLevelWildcard = "+"
	MultiLevelWildcard  = "#"
)

const (
	EntityToken             = "entity"
	PropertyToken           = "property"
	PropertyValueToken      = "propertyvalue"
	PropertyWriteToken      = "writeproperty"
	PropertyValueWriteToken = "writepropertyvalue"
)

// Token positions shared by every bridge topic.
const (
	RealmIndex    = 0
	ClientIDIndex = 1
	KindIndex     = 2
)

var entityIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// IsEntityID reports whether token is a literal entity id.
func IsEntityID(token string) bool {
	return entityIDPattern.MatchString(token)
}

// IsPropertyName reports whether name can stand as a single literal topic
// level.
func IsPropertyName(name string) bool {
	return name != "" && !strings.ContainsAny(name, Separator+SingleLevelWildcard+MultiLevelWildcard)
}

func IsWildcard(token string) bool {
	return token == SingleLevelWildcard || token == MultiLevelWildcard
}

type Kind uint8

const (
	KindUnknown Kind = iota
	KindEntity
	KindProperty
	KindPropertyValue
	KindPropertyWrite
	KindPropertyValueWrite
)

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return EntityToken
	case KindProperty:
		return PropertyToken
	case KindPropertyValue:
		return PropertyValueToken
	case KindPropertyWrite:
		return PropertyWriteToken
	case KindPropertyValueWrite:
		return PropertyValueWriteToken
	default:
		return "unknown"
	}
}

// IsSubscription reports whether clients may subscribe to topics of this kind.
func (k Kind) IsSubscription() bool {
	return k == KindEntity || k == KindProperty || k == KindPropertyValue
}

// IsProperty reports whether the kind carries property events.
func (k Kind) IsProperty() bool {
	return k == KindProperty || k == KindPropertyValue
}

func (k Kind) IsWrite() bool {
	return k == KindPropertyWrite || k == KindPropertyValueWrite
}

func kindOf(token string) Kind {
	switch {
	case strings.EqualFold(token, EntityToken):
		return KindEntity
	case strings.EqualFold(token, PropertyToken):
		return KindProperty
	case strings.EqualFold(token, PropertyValueToken):
		return KindPropertyValue
	case strings.EqualFold(token, PropertyWriteToken):
		return KindPropertyWrite
	case strings.EqualFold(token, PropertyValueWriteToken):
		return KindPropertyValueWrite
	default:
		return KindUnknown
	}
}

// Topic is a parsed topic string. The zero value is an empty topic.
type Topic struct {
	raw    string
	tokens []string
	kind   Kind
}

func Parse(s string) Topic {
	tokens := strings.Split(s, Separator)
	t := Topic{raw: s, tokens: tokens}
	if len(tokens) > KindIndex {
		t.kind = kindOf(tokens[KindIndex])
	}
	return t
}

func (t Topic) String() string {
	return t.raw
}

func (t Topic) Len() int {
	return len(t.tokens)
}

// Token returns the token at i, or "" when i is out of range.
func (t Topic) Token(i int) string {
	if i < 0 || i >= len(t.tokens) {
		return ""
	}
	return t.tokens[i]
}

func (t Topic) Last() string {
	return t.Token(len(t.tokens) - 1)
}

func (t Topic) Kind() Kind {
	return t.kind
}

func (t Topic) Realm() string {
	return t.Token(RealmIndex)
}

func (t Topic) ClientID() string {
	return t.Token(ClientIDIndex)
}

// EndsWithWildcard reports whether the final token is a wildcard.
func (t Topic) EndsWithWildcard() bool {
	return len(t.tokens) > 0 && IsWildcard(t.Last())
}
