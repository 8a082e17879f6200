package protocol

import (
	"fmt"
)

// MessageData - the record shuttled through the queue
type MessageData struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// NewMessageData ...
func NewMessageData(name string, age int) *MessageData {
	return &MessageData{Name: name, Age: age}
}

// JSON - convert struct to json
func (m *MessageData) JSON() ([]byte, error) {
	return Encode(m)
}

// FromJSON - convert json to struct
func (m *MessageData) FromJSON(body []byte) error {
	return Decode(body, m)
}

// Equal reports whether both records carry the same fields.
func (m *MessageData) Equal(other *MessageData) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Name == other.Name && m.Age == other.Age
}

// String representation
func (m MessageData) String() string {
	return fmt.Sprintf("MessageData [name=%s, age=%d]", m.Name, m.Age)
}
