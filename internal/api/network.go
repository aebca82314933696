package api

import (
	"container/heap"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/harrylevesque/starseeker/internal/models"
	"github.com/harrylevesque/starseeker/internal/utils"
)

const (
	// CostPerHU is charged per passenger per hyperplane unit travelled.
	CostPerHU = 0.10

	personalRatePerAU = 0.30
	personalCapacity  = 4
	parkingPerDay     = 5.00
	hstcRatePerAU     = 0.45
	hstcCapacity      = 5
)

// Network is the gate graph served by the stub API. Links are directed.
type Network struct {
	gates map[string]models.Gate
}

var seededAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewNetwork indexes gates by code and fills in missing UUIDs and timestamps.
func NewNetwork(gates []models.Gate) *Network {
	n := &Network{gates: make(map[string]models.Gate, len(gates))}
	for _, g := range gates {
		if g.UUID == "" {
			g.UUID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("starseeker-gate:"+g.Code)).String()
		}
		if g.CreatedAt == nil {
			created := seededAt
			g.CreatedAt = &created
		}
		if g.UpdatedAt == nil {
			updated := *g.CreatedAt
			g.UpdatedAt = &updated
		}
		n.gates[g.Code] = g
	}
	return n
}

// DefaultNetwork is the gate map used by cmd/stubserver and the client tests.
func DefaultNetwork() *Network {
	gate := func(code, name string, links ...models.GateLink) models.Gate {
		return models.Gate{Code: code, Name: name, Links: links}
	}
	link := func(code string, hu float64) models.GateLink { return models.GateLink{Code: code, HU: hu} }

	return NewNetwork([]models.Gate{
		gate("SOL", "Sol", link("RAN", 100), link("PRX", 90), link("SIR", 100), link("ARC", 200), link("ALD", 250)),
		gate("PRX", "Proxima", link("SOL", 90), link("SIR", 100), link("ALT", 150)),
		gate("SIR", "Sirius", link("SOL", 80), link("PRX", 10), link("CAS", 200)),
		gate("CAS", "Castor", link("SIR", 200), link("PRO", 120)),
		gate("PRO", "Procyon", link("CAS", 80)),
		gate("DEN", "Denebula", link("PRO", 5), link("ARC", 2), link("FOM", 8), link("RAN", 100), link("ALD", 3)),
		gate("RAN", "Ran", link("SOL", 100)),
		gate("ARC", "Arcturus", link("SOL", 500), link("DEN", 120)),
		gate("FOM", "Fomalhaut", link("PRX", 10), link("DEN", 20), link("ALS", 9)),
		gate("ALT", "Altair", link("FOM", 140), link("VEG", 220)),
		gate("VEG", "Vega", link("ARC", 220), link("ALD", 85)),
		gate("ALD", "Aldermain", link("SOL", 200), link("ALS", 160), link("VEG", 320)),
		gate("ALS", "Alshain", link("ALT", 1), link("ALD", 1)),
	})
}

// Gates returns all gates in name order.
func (n *Network) Gates() []models.Gate {
	out := make([]models.Gate, 0, len(n.gates))
	for _, g := range n.gates {
		out = append(out, g)
	}
	models.SortGatesByName(out)
	return out
}

// Gate looks up one gate by code.
func (n *Network) Gate(code string) (models.Gate, error) {
	g, ok := n.gates[code]
	if !ok {
		return models.Gate{}, utils.New(http.StatusNotFound, "gate "+code+" not found")
	}
	return g, nil
}

// CheapestRoute finds the lowest-HU path between two gates and prices it for
// one passenger.
func (n *Network) CheapestRoute(from, to string) (models.Journey, error) {
	src, err := n.Gate(from)
	if err != nil {
		return models.Journey{}, err
	}
	dst, err := n.Gate(to)
	if err != nil {
		return models.Journey{}, err
	}

	dist := map[string]float64{from: 0}
	prev := map[string]string{}
	pq := &queue{{code: from}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(item)
		if cur.hu > dist[cur.code] {
			continue
		}
		if cur.code == to {
			break
		}
		for _, l := range n.gates[cur.code].Links {
			if _, ok := n.gates[l.Code]; !ok {
				continue
			}
			next := cur.hu + l.HU
			if d, seen := dist[l.Code]; !seen || next < d {
				dist[l.Code] = next
				prev[l.Code] = cur.code
				heap.Push(pq, item{code: l.Code, hu: next})
			}
		}
	}

	total, ok := dist[to]
	if !ok {
		return models.Journey{}, utils.New(http.StatusNotFound, "no route from "+from+" to "+to)
	}
	route := []string{to}
	for c := to; c != from; {
		c = prev[c]
		route = append([]string{c}, route...)
	}
	return models.Journey{
		From:      src,
		To:        dst,
		Route:     route,
		TotalCost: round2(total * CostPerHU),
	}, nil
}

// Quote prices moving passengers distance AU with parking days, recommending
// the cheaper of personal transport (which pays parking) and an HSTC transport.
func Quote(distance float64, passengers, parking int) models.TransportCost {
	personalVehicles := math.Ceil(float64(passengers) / personalCapacity)
	personalJourney := personalVehicles * personalRatePerAU * distance
	personalParking := personalVehicles * parkingPerDay * float64(parking)

	hstcVehicles := math.Ceil(float64(passengers) / hstcCapacity)
	hstcJourney := hstcVehicles * hstcRatePerAU * distance

	if personalJourney+personalParking <= hstcJourney {
		return models.TransportCost{
			Currency:    "GBP",
			JourneyCost: round2(personalJourney),
			ParkingFee:  round2(personalParking),
			RecommendedTransport: models.Transport{
				Name: "Personal Transport", Capacity: personalCapacity, RatePerAU: personalRatePerAU,
			},
		}
	}
	return models.TransportCost{
		Currency:    "GBP",
		JourneyCost: round2(hstcJourney),
		RecommendedTransport: models.Transport{
			Name: "HSTC Transport", Capacity: hstcCapacity, RatePerAU: hstcRatePerAU,
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type item struct {
	code string
	hu   float64
}

type queue []item

func (q queue) Len() int           { return len(q) }
func (q queue) Less(i, j int) bool { return q[i].hu < q[j].hu }
func (q queue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)        { *q = append(*q, x.(item)) }
func (q *queue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}
