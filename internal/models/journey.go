package models

import (
	"bytes"
	"encoding/json"
)

// Journey is the cheapest route between two gates, computed by the service.
type Journey struct {
	From      Gate     `json:"from"`
	To        Gate     `json:"to"`
	Route     []string `json:"route"`
	TotalCost float64  `json:"totalCost"`
}

// endpointWire accepts either a gate object or a bare gate code.
type endpointWire struct {
	gate *gateWire
}

func (e *endpointWire) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var code string
	if err := json.Unmarshal(trimmed, &code); err == nil {
		e.gate = &gateWire{Code: &code, Name: &code}
		return nil
	}
	var w gateWire
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return err
	}
	e.gate = &w
	return nil
}

type journeyWire struct {
	From      endpointWire `json:"from"`
	To        endpointWire `json:"to"`
	Route     *[]string    `json:"route"`
	TotalCost *float64     `json:"totalCost"`
}

// DecodeJourney parses and validates a route response.
func DecodeJourney(data []byte) (Journey, error) {
	var w journeyWire
	if err := decodeStrict("journey", data, &w); err != nil {
		return Journey{}, err
	}
	is := &issues{typ: "journey"}
	var j Journey
	if w.From.gate == nil {
		is.addf("from: required")
	} else {
		j.From = w.From.gate.validate("from.", is)
	}
	if w.To.gate == nil {
		is.addf("to: required")
	} else {
		j.To = w.To.gate.validate("to.", is)
	}
	if w.Route == nil {
		is.addf("route: required")
	} else {
		j.Route = *w.Route
	}
	if w.TotalCost == nil {
		is.addf("totalCost: required")
	} else {
		j.TotalCost = *w.TotalCost
	}
	return j, is.err()
}
