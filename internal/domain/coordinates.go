package domain

import (
	"errors"
	"fmt"
)

// CoordinateConverter translates an external sky-coordinate object to and
// from J2000 equatorial degrees.
type CoordinateConverter interface {
	ToEquatorial(sky any) (ra, dec float64, err error)
	FromEquatorial(ra, dec float64) (any, error)
}

// Coordinates is an optional J2000 position in decimal degrees.
type Coordinates struct {
	RA  *float64
	Dec *float64
}

func (c *Coordinates) Set(ra, dec float64) error {
	if err := c.SetRA(ra); err != nil {
		return err
	}
	return c.SetDec(dec)
}

func (c *Coordinates) SetRA(ra float64) error {
	if ra < 0 || ra >= 360 {
		return fmt.Errorf("ra %v: %w", ra, ErrOutOfRange)
	}
	c.RA = &ra
	return nil
}

func (c *Coordinates) SetDec(dec float64) error {
	if dec < -90 || dec > 90 {
		return fmt.Errorf("dec %v: %w", dec, ErrOutOfRange)
	}
	c.Dec = &dec
	return nil
}

// Get returns the position when both components are present.
func (c Coordinates) Get() (ra, dec float64, ok bool) {
	if c.RA == nil || c.Dec == nil {
		return 0, 0, false
	}
	return *c.RA, *c.Dec, true
}

// IsSet reports whether both components are present.
func (c Coordinates) IsSet() bool {
	return c.RA != nil && c.Dec != nil
}

// SetSky sets the position from an external coordinate object.
func (c *Coordinates) SetSky(conv CoordinateConverter, sky any) error {
	if conv == nil {
		return errors.New("no coordinate converter configured")
	}
	ra, dec, err := conv.ToEquatorial(sky)
	if err != nil {
		return fmt.Errorf("convert coordinates: %w", err)
	}
	return c.Set(ra, dec)
}

// Sky returns the position as an external coordinate object.
func (c Coordinates) Sky(conv CoordinateConverter) (any, error) {
	if conv == nil {
		return nil, errors.New("no coordinate converter configured")
	}
	ra, dec, ok := c.Get()
	if !ok {
		return nil, errors.New("coordinates not set")
	}
	return conv.FromEquatorial(ra, dec)
}
