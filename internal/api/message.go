package api

import "google.golang.org/protobuf/types/known/structpb"

// Field names used in requests and responses.
const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldName         = "name"
	FieldStatus       = "status"
	FieldAccessToken  = "access_token"
	FieldRefreshToken = "refresh_token"
)

// NewMessage builds a Struct whose fields are all strings.
func NewMessage(fields map[string]string) *structpb.Struct {
	m := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(fields))}
	for k, v := range fields {
		m.Fields[k] = structpb.NewStringValue(v)
	}
	return m
}

// StringField returns the string value stored under key, or "" when the
// field is absent or not a string.
func StringField(m *structpb.Struct, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m.GetFields()[key]
	if !ok {
		return ""
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return ""
	}
	return s.StringValue
}
