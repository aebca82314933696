// Package models holds the StarSeeker API payloads and their validation.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gate is a named node of the hyperspace network.
type Gate struct {
	UUID      string     `json:"uuid,omitempty"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Links     GateLinks  `json:"links,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// GateLink is an outgoing hyperspace lane and its length in hyperplane units.
type GateLink struct {
	Code string  `json:"code"`
	HU   float64 `json:"hu"`
}

// GateLinks decodes null, a list of gate codes, or a list of {code, hu}.
type GateLinks []GateLink

func (l *GateLinks) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}

	var codes []string
	if err := json.Unmarshal(trimmed, &codes); err == nil {
		links := make(GateLinks, len(codes))
		for i, c := range codes {
			links[i] = GateLink{Code: c}
		}
		*l = links
		return nil
	}

	var raw []struct {
		Code string          `json:"code"`
		HU   flexibleFloat64 `json:"hu"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("unsupported links value: %s", string(trimmed))
	}
	links := make(GateLinks, len(raw))
	for i, r := range raw {
		links[i] = GateLink{Code: r.Code, HU: float64(r.HU)}
	}
	*l = links
	return nil
}

type gateWire struct {
	UUID      *string   `json:"uuid"`
	Code      *string   `json:"code"`
	Name      *string   `json:"name"`
	Links     GateLinks `json:"links"`
	CreatedAt *string   `json:"createdAt"`
	UpdatedAt *string   `json:"updatedAt"`
}

func (w gateWire) validate(path string, is *issues) Gate {
	var g Gate
	if w.UUID != nil && *w.UUID != "" {
		if _, err := uuid.Parse(*w.UUID); err != nil {
			is.addf("%suuid: %v", path, err)
		}
		g.UUID = *w.UUID
	}
	if w.Code == nil {
		is.addf("%scode: required", path)
	} else {
		g.Code = *w.Code
	}
	if w.Name == nil {
		is.addf("%sname: required", path)
	} else {
		g.Name = *w.Name
	}
	for i, link := range w.Links {
		if link.Code == "" {
			is.addf("%slinks[%d].code: required", path, i)
		}
	}
	g.Links = w.Links
	g.CreatedAt = parseTimestamp(path+"createdAt", w.CreatedAt, is)
	g.UpdatedAt = parseTimestamp(path+"updatedAt", w.UpdatedAt, is)
	return g
}

func parseTimestamp(field string, raw *string, is *issues) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		is.addf("%s: not an RFC 3339 timestamp", field)
		return nil
	}
	return &t
}

// DecodeGate parses and validates a single gate.
func DecodeGate(data []byte) (Gate, error) {
	var w gateWire
	if err := decodeStrict("gate", data, &w); err != nil {
		return Gate{}, err
	}
	is := &issues{typ: "gate"}
	g := w.validate("", is)
	return g, is.err()
}

// DecodeGates parses and validates a gate list, sorted by name.
func DecodeGates(data []byte) ([]Gate, error) {
	var ws []gateWire
	if err := decodeStrict("gates", data, &ws); err != nil {
		return nil, err
	}
	is := &issues{typ: "gates"}
	gates := make([]Gate, len(ws))
	for i, w := range ws {
		gates[i] = w.validate(fmt.Sprintf("[%d].", i), is)
	}
	if err := is.err(); err != nil {
		return nil, err
	}
	SortGatesByName(gates)
	return gates, nil
}

// SortGatesByName orders gates case-insensitively by display name, then code.
func SortGatesByName(gates []Gate) {
	sort.SliceStable(gates, func(i, j int) bool {
		a, b := strings.ToLower(gates[i].Name), strings.ToLower(gates[j].Name)
		if a != b {
			return a < b
		}
		return gates[i].Code < gates[j].Code
	})
}
