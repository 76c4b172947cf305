package mqttclient

import "github.com/bronystylecrazy/assetbridge/topic"

// Topics builds bridge topics for one realm and client id.
//
//	topics := mqttclient.Topics{Realm: "building", ClientID: "dash-1"}
//	topics.PropertyValue("temperature", "+")
//	// building/dash-1/propertyvalue/temperature/+
type Topics struct {
	Realm    string
	ClientID string
}

func (t Topics) join(tokens ...string) string {
	out := t.Realm + topic.Separator + t.ClientID
	for _, token := range tokens {
		out += topic.Separator + token
	}
	return out
}

// Entity returns an entity subscription topic, e.g. Entity("#") or
// Entity("ast-1", "+").
func (t Topics) Entity(tail ...string) string {
	return t.join(append([]string{topic.EntityToken}, tail...)...)
}

func (t Topics) Property(name string, tail ...string) string {
	return t.join(append([]string{topic.PropertyToken, name}, tail...)...)
}

func (t Topics) PropertyValue(name string, tail ...string) string {
	return t.join(append([]string{topic.PropertyValueToken, name}, tail...)...)
}

func (t Topics) WriteProperty() string {
	return t.join(topic.PropertyWriteToken)
}

func (t Topics) WritePropertyValue(name, entityID string) string {
	return t.join(topic.PropertyValueWriteToken, name, entityID)
}
