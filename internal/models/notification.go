package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// DefaultTopic is the push topic stock alerts are sent to.
const DefaultTopic = "stock_alerts"

// NotificationMessage is a composed push notification addressed to a topic.
type NotificationMessage struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Topic string            `json:"topic"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushRequest is the body of the cross-service dispatch call. Data values may
// be of any JSON type; they are coerced to strings before delivery.
type PushRequest struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Topic string         `json:"topic"`
	Data  map[string]any `json:"data,omitempty"`
}

// Message validates the request and converts it into a NotificationMessage.
func (r *PushRequest) Message() (*NotificationMessage, error) {
	if r.Title == "" || r.Body == "" {
		return nil, fmt.Errorf("%w: title and body required", ErrValidation)
	}
	topic := r.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &NotificationMessage{
		Title: r.Title,
		Body:  r.Body,
		Topic: topic,
		Data:  CoerceData(r.Data),
	}, nil
}

// NewPushRequest builds the wire form of msg.
func NewPushRequest(msg *NotificationMessage) *PushRequest {
	data := make(map[string]any, len(msg.Data))
	for k, v := range msg.Data {
		data[k] = v
	}
	return &PushRequest{Title: msg.Title, Body: msg.Body, Topic: msg.Topic, Data: data}
}

// CoerceData converts arbitrary JSON values to strings, since the push
// gateway only accepts string-typed metadata.
func CoerceData(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		case bool:
			out[k] = strconv.FormatBool(t)
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case json.Number:
			out[k] = t.String()
		case int:
			out[k] = strconv.Itoa(t)
		default:
			b, err := json.Marshal(t)
			if err != nil {
				out[k] = fmt.Sprint(t)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}

// DeliveryResult describes an accepted push delivery.
type DeliveryResult struct {
	// Name is the gateway-assigned message name.
	Name     string `json:"name"`
	Attempts int    `json:"attempts,omitempty"`
}

// PushResponse is the body returned by the cross-service dispatch call.
type PushResponse struct {
	Success     bool            `json:"success"`
	FCMResponse *DeliveryResult `json:"fcm_response,omitempty"`
	Error       string          `json:"error,omitempty"`
}
