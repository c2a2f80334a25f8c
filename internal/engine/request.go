package engine

import (
	"swiftapi/internal/schema"
)

// Submittable is a request that can be driven through the job lifecycle.
type Submittable interface {
	schema.Object
	Validate() error
	RequestStatus() *Status
	Credentials() (username, secret string)
	SetCredentials(username, secret string)
}

// PostProcessor runs once when a request is first seen Accepted.
type PostProcessor interface {
	PostProcess()
}

// Request carries the identity and job status every request type shares.
// Embed it and declare UsernameField first and StatusField last.
type Request struct {
	Username     string
	SharedSecret string
	Status       Status
}

func (r *Request) RequestStatus() *Status { return &r.Status }

func (r *Request) Credentials() (string, string) { return r.Username, r.SharedSecret }

func (r *Request) SetCredentials(username, secret string) {
	r.Username = username
	r.SharedSecret = secret
}

// UsernameField is the identity field, submitted at index 0.
func UsernameField[T Submittable]() schema.Field {
	return schema.Func("username",
		func(o T) any {
			if u, _ := o.Credentials(); u != "" {
				return u
			}
			return nil
		},
		func(o T, v any) error {
			u, err := schema.AsString(v)
			if err != nil {
				return err
			}
			_, secret := o.Credentials()
			o.SetCredentials(u, secret)
			return nil
		}).Raw()
}

// SecretField is the local shared_secret field.
func SecretField[T Submittable]() schema.Field {
	return schema.Func("shared_secret",
		func(o T) any {
			if _, s := o.Credentials(); s != "" {
				return s
			}
			return nil
		},
		func(o T, v any) error {
			s, err := schema.AsString(v)
			if err != nil {
				return err
			}
			u, _ := o.Credentials()
			o.SetCredentials(u, s)
			return nil
		}).Raw()
}

// StatusField exposes the nested job status. Inbound values are merged so
// that a terminal status is never overwritten.
func StatusField[T Submittable]() schema.Field {
	return schema.Func("status",
		func(o T) any {
			st := o.RequestStatus()
			if st.Empty() {
				return nil
			}
			return st
		},
		func(o T, v any) error {
			if v == nil {
				return nil
			}
			in, err := schema.As[*Status](v)
			if err != nil {
				return err
			}
			o.RequestStatus().merge(in)
			return nil
		})
}
