package activecampaign

import (
	"bytes"
	"encoding/json"
	"time"
)

// Config holds ActiveCampaign API configuration
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Debug      bool
}

// FlexString decodes ids the API sends either as "12" or 12.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// ========== Contacts ==========

type syncFieldValue struct {
	Field int    `json:"field"`
	Value string `json:"value"`
}

type syncContact struct {
	Email       string           `json:"email"`
	FirstName   string           `json:"firstName,omitempty"`
	LastName    string           `json:"lastName,omitempty"`
	Phone       string           `json:"phone,omitempty"`
	FieldValues []syncFieldValue `json:"fieldValues,omitempty"`
}

type syncContactRequest struct {
	Contact syncContact `json:"contact"`
}

// RemoteContact is the contact object returned by the upsert endpoint.
type RemoteContact struct {
	ID        FlexString `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Phone     string     `json:"phone"`
}

type syncContactResponse struct {
	Contact *RemoteContact `json:"contact"`
}

// ========== Lists ==========

type contactListEntry struct {
	List    FlexString `json:"list"`
	Contact FlexString `json:"contact"`
	Status  FlexString `json:"status"`
}

type contactListsResponse struct {
	ContactLists []contactListEntry `json:"contactLists"`
}

type contactListBody struct {
	List    int64 `json:"list"`
	Contact int64 `json:"contact"`
	Status  int   `json:"status"`
}

type contactListRequest struct {
	ContactList contactListBody `json:"contactList"`
}

// ========== Tags ==========

// RemoteTag is a tag object as listed by the API.
type RemoteTag struct {
	ID          FlexString `json:"id"`
	Tag         string     `json:"tag"`
	TagType     string     `json:"tagType"`
	Description string     `json:"description"`
}

type tagsResponse struct {
	Tags []RemoteTag `json:"tags"`
}

type tagBody struct {
	Tag         string `json:"tag"`
	TagType     string `json:"tagType"`
	Description string `json:"description,omitempty"`
}

type tagRequest struct {
	Tag tagBody `json:"tag"`
}

type tagResponse struct {
	Tag *RemoteTag `json:"tag"`
}

type contactTagBody struct {
	Contact int64 `json:"contact"`
	Tag     int64 `json:"tag"`
}

type contactTagRequest struct {
	ContactTag contactTagBody `json:"contactTag"`
}

// ========== Fields ==========

// RemoteField is a custom field definition.
type RemoteField struct {
	ID      FlexString `json:"id"`
	Title   string     `json:"title"`
	Type    string     `json:"type"`
	PersTag string     `json:"perstag"`
}

type fieldsResponse struct {
	Fields []RemoteField `json:"fields"`
}

// ========== Errors ==========

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Errors  []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (e errorResponse) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Error != "":
		return e.Error
	case len(e.Errors) > 0 && e.Errors[0].Title != "":
		return e.Errors[0].Title
	case len(e.Errors) > 0:
		return e.Errors[0].Detail
	default:
		return ""
	}
}
