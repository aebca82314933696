package models

// Transport is a vehicle class offered for a journey.
type Transport struct {
	Name      string  `json:"name"`
	Capacity  int     `json:"capacity"`
	RatePerAU float64 `json:"ratePerAu"`
}

// TransportCost is a quote for moving passengers a distance, plus parking.
type TransportCost struct {
	Currency             string    `json:"currency"`
	JourneyCost          float64   `json:"journeyCost"`
	ParkingFee           float64   `json:"parkingFee"`
	RecommendedTransport Transport `json:"recommendedTransport"`
}

// Total is the journey cost plus the parking fee.
func (c TransportCost) Total() float64 {
	return c.JourneyCost + c.ParkingFee
}

type transportCostWire struct {
	Currency             *string  `json:"currency"`
	JourneyCost          *float64 `json:"journeyCost"`
	ParkingFee           *float64 `json:"parkingFee"`
	RecommendedTransport *struct {
		Name      *string  `json:"name"`
		Capacity  *float64 `json:"capacity"`
		RatePerAU *float64 `json:"ratePerAu"`
	} `json:"recommendedTransport"`
}

// DecodeTransportCost parses and validates a transport quote.
func DecodeTransportCost(data []byte) (TransportCost, error) {
	var w transportCostWire
	if err := decodeStrict("transport cost", data, &w); err != nil {
		return TransportCost{}, err
	}
	is := &issues{typ: "transport cost"}
	var c TransportCost
	if w.Currency == nil {
		is.addf("currency: required")
	} else {
		c.Currency = *w.Currency
	}
	if w.JourneyCost == nil {
		is.addf("journeyCost: required")
	} else {
		c.JourneyCost = *w.JourneyCost
	}
	if w.ParkingFee == nil {
		is.addf("parkingFee: required")
	} else {
		c.ParkingFee = *w.ParkingFee
	}
	if rt := w.RecommendedTransport; rt == nil {
		is.addf("recommendedTransport: required")
	} else {
		if rt.Name == nil {
			is.addf("recommendedTransport.name: required")
		} else {
			c.RecommendedTransport.Name = *rt.Name
		}
		if rt.Capacity == nil {
			is.addf("recommendedTransport.capacity: required")
		} else {
			c.RecommendedTransport.Capacity = int(*rt.Capacity)
		}
		if rt.RatePerAU == nil {
			is.addf("recommendedTransport.ratePerAu: required")
		} else {
			c.RecommendedTransport.RatePerAU = *rt.RatePerAU
		}
	}
	return c, is.err()
}
