// Package envelope signs outbound requests and checks inbound replies.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"

	"swiftapi/internal/schema"
)

// StatusType is the name of the queue-status reply sent while a job is not
// yet finished.
const StatusType = "Swift_TOO_Status"

var (
	ErrMalformedReply  = errors.New("malformed reply")
	ErrVersionMismatch = errors.New("api version mismatch")
)

// VersionError reports a reply from a different protocol version.
type VersionError struct {
	Local  string
	Remote string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("api version mismatch: client speaks %s, server replied with %s", e.Local, e.Remote)
}

func (e *VersionError) Is(target error) bool { return target == ErrVersionMismatch }

// Reply is a decoded envelope.
type Reply struct {
	Name    string
	Version string
	Data    map[string]any
}

// IsStatus reports whether the reply only carries queue status.
func (r *Reply) IsStatus() bool { return r.Name == StatusType }

// Sign returns an HS256 token over the submitted envelope of o. The claims
// carry no time fields, so equal objects sign to equal tokens.
func Sign(o schema.Object, secret string) (string, error) {
	return SignVersion(o, secret, schema.Version)
}

// SignVersion is Sign with an explicit protocol version; empty means
// schema.Version.
func SignVersion(o schema.Object, secret, version string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("signing secret required")
	}
	claims := jwt.MapClaims(schema.ToEnvelope(o))
	if version != "" {
		claims[schema.VersionKey] = version
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", o.Schema().Name(), err)
	}
	return token, nil
}

// Parse verifies a token and returns its envelope. Numbers are kept as
// json.Number so integers survive intact.
func Parse(token, secret string) (*Reply, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithJSONNumber(),
	)
	claims := jwt.MapClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return fromMap(claims)
}

// DecodeReply parses a reply body into an envelope.
func DecodeReply(body []byte) (*Reply, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: not valid json", ErrMalformedReply)
	}
	head := gjson.ParseBytes(body)
	if !head.IsObject() {
		return nil, fmt.Errorf("%w: expected an object", ErrMalformedReply)
	}
	if name := head.Get(schema.NameKey); name.Type != gjson.String || name.Str == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedReply, schema.NameKey)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return fromMap(m)
}

func fromMap(m map[string]any) (*Reply, error) {
	r := &Reply{Data: map[string]any{}}
	r.Name, _ = m[schema.NameKey].(string)
	if r.Name == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedReply, schema.NameKey)
	}
	switch v := m[schema.VersionKey].(type) {
	case string:
		r.Version = v
	case json.Number:
		r.Version = v.String()
	case float64:
		r.Version = fmt.Sprint(v)
	}
	switch d := m[schema.DataKey].(type) {
	case nil:
	case map[string]any:
		r.Data = d
	default:
		return nil, fmt.Errorf("%w: %s must be an object", ErrMalformedReply, schema.DataKey)
	}
	return r, nil
}

// CheckVersion fails when the reply speaks another protocol version.
func CheckVersion(r *Reply) error {
	return ExpectVersion(r, schema.Version)
}

// ExpectVersion fails unless the reply speaks version; empty means
// schema.Version.
func ExpectVersion(r *Reply, version string) error {
	if version == "" {
		version = schema.Version
	}
	if r.Version != version {
		return &VersionError{Local: version, Remote: r.Version}
	}
	return nil
}
