// Package simulate generates realistic transaction traffic with injected
// fraud patterns, for load testing and demoing the scoring API.
package simulate

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// Fraud pattern names attached to generated transactions.
const (
	PatternCardTesting     = "card_testing"
	PatternAccountTakeover = "account_takeover"
	PatternSyntheticFraud  = "synthetic_fraud"
	PatternVelocityFraud   = "velocity_fraud"
)

// patternRates are per-transaction injection probabilities, applied
// cumulatively.
var patternRates = []struct {
	name string
	rate float64
}{
	{PatternCardTesting, 0.02},
	{PatternAccountTakeover, 0.01},
	{PatternSyntheticFraud, 0.005},
	{PatternVelocityFraud, 0.01},
}

// user is a synthetic account with stable spending behavior.
type user struct {
	id        string
	avgAmount float64
	method    string
	deviceID  string
}

// merchant is a synthetic counterparty with a category risk profile.
type merchant struct {
	id        string
	category  string
	avgAmount float64
}

var merchantCategories = []struct {
	category  string
	avgAmount float64
}{
	{"retail", 50},
	{"grocery", 25},
	{"gas_station", 40},
	{"restaurant", 35},
	{"online_retail", 75},
	{"gambling", 200},
	{"jewelry", 500},
	{"electronics", 300},
}

var paymentMethods = []string{"credit_card", "credit_card", "credit_card", "debit_card", "debit_card", "wire_transfer"}

// Generator produces transactions drawn from a fixed pool of users and
// merchants, with occasional fraud patterns mixed in.
type Generator struct {
	rng       *rand.Rand
	users     []user
	merchants []merchant

	// velocity bursts emit several transactions for one user
	burstUser  string
	burstLeft  int
	generated  int64
	fraudCount int64
}

// NewGenerator builds the user and merchant pools. The seed makes a run
// reproducible.
func NewGenerator(numUsers, numMerchants int, seed int64) *Generator {
	rng := rand.New(rand.NewSource(seed))

	g := &Generator{
		rng:       rng,
		users:     make([]user, numUsers),
		merchants: make([]merchant, numMerchants),
	}
	for i := range g.users {
		g.users[i] = user{
			id: fmt.Sprintf("user_%08x", rng.Uint32()),
			// Log-normal spend profile: most users small, a long tail of whales.
			avgAmount: math.Exp(rng.NormFloat64() + 4),
			method:    paymentMethods[rng.Intn(len(paymentMethods))],
			deviceID:  uuid.NewString(),
		}
	}
	for i := range g.merchants {
		cat := merchantCategories[rng.Intn(len(merchantCategories))]
		g.merchants[i] = merchant{
			id:        fmt.Sprintf("merchant_%08x", rng.Uint32()),
			category:  cat.category,
			avgAmount: cat.avgAmount * (0.5 + rng.Float64()*1.5),
		}
	}
	return g
}

// Next generates one transaction request. The returned pattern is empty for
// legitimate traffic.
func (g *Generator) Next() (req domain.PredictRequest, pattern string) {
	g.generated++

	u := &g.users[g.rng.Intn(len(g.users))]

	// An active velocity burst pins the user until it drains.
	if g.burstLeft > 0 {
		for i := range g.users {
			if g.users[i].id == g.burstUser {
				u = &g.users[i]
				break
			}
		}
		g.burstLeft--
		pattern = PatternVelocityFraud
	}

	m := g.merchants[g.rng.Intn(len(g.merchants))]

	amount := u.avgAmount * (0.7 + g.rng.Float64()*0.6) * (m.avgAmount / 100)
	if amount < 1 {
		amount = 1 + g.rng.Float64()*10
	}

	req = domain.PredictRequest{
		TransactionID: uuid.NewString(),
		UserID:        u.id,
		MerchantID:    m.id,
		Amount:        round2(amount),
		Currency:      "USD",
		PaymentMethod: u.method,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Metadata: map[string]interface{}{
			"device_id":         u.deviceID,
			"merchant_category": m.category,
		},
	}

	if pattern == "" {
		pattern = g.rollPattern()
	}
	if pattern != "" {
		g.applyPattern(pattern, u, &req)
		g.fraudCount++
		req.Metadata["fraud_pattern"] = pattern
	}
	return req, pattern
}

// rollPattern draws one fraud pattern using cumulative probabilities.
func (g *Generator) rollPattern() string {
	roll := g.rng.Float64()
	cumulative := 0.0
	for _, p := range patternRates {
		cumulative += p.rate
		if roll < cumulative {
			return p.name
		}
	}
	return ""
}

func (g *Generator) applyPattern(pattern string, u *user, req *domain.PredictRequest) {
	switch pattern {
	case PatternCardTesting:
		// Many tiny authorizations probing a stolen card.
		req.Amount = round2(1 + g.rng.Float64()*4)
	case PatternAccountTakeover:
		// Unfamiliar device and a risky payment method.
		req.PaymentMethod = "crypto"
		req.Metadata["device_id"] = uuid.NewString()
	case PatternSyntheticFraud:
		// Fresh identity cashing out with a large purchase.
		req.Amount = round2(1000 + g.rng.Float64()*4000)
		req.UserID = fmt.Sprintf("user_%08x", g.rng.Uint32())
	case PatternVelocityFraud:
		if g.burstLeft == 0 {
			g.burstUser = u.id
			g.burstLeft = 5 + g.rng.Intn(10)
		}
	}
}

// Stats reports generation counters.
func (g *Generator) Stats() (generated, fraud int64) {
	return g.generated, g.fraudCount
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
