package models

// Status is the service health report from GET /status.
type Status struct {
	DB struct {
		CanConnect             bool `json:"canConnect"`
		HasRequiredTableAccess bool `json:"hasRequiredTableAccess"`
	} `json:"db"`
	Version string `json:"version"`
}

// Healthy is true when the service database is fully usable.
func (s Status) Healthy() bool {
	return s.DB.CanConnect && s.DB.HasRequiredTableAccess
}

type statusWire struct {
	DB *struct {
		CanConnect             *bool `json:"canConnect"`
		HasRequiredTableAccess *bool `json:"hasRequiredTableAccess"`
	} `json:"db"`
	Version *string `json:"version"`
}

// DecodeStatus parses and validates a status report.
func DecodeStatus(data []byte) (Status, error) {
	var w statusWire
	if err := decodeStrict("status", data, &w); err != nil {
		return Status{}, err
	}
	is := &issues{typ: "status"}
	var s Status
	if w.DB == nil {
		is.addf("db: required")
	} else {
		if w.DB.CanConnect == nil {
			is.addf("db.canConnect: required")
		} else {
			s.DB.CanConnect = *w.DB.CanConnect
		}
		if w.DB.HasRequiredTableAccess == nil {
			is.addf("db.hasRequiredTableAccess: required")
		} else {
			s.DB.HasRequiredTableAccess = *w.DB.HasRequiredTableAccess
		}
	}
	if w.Version == nil {
		is.addf("version: required")
	} else {
		s.Version = *w.Version
	}
	return s, is.err()
}
