package simulate

import "testing"

func TestGeneratorProducesValidRequests(t *testing.T) {
	g := NewGenerator(50, 20, 1)

	for i := 0; i < 1000; i++ {
		req, _ := g.Next()
		if req.TransactionID == "" {
			t.Fatal("missing transaction id")
		}
		if req.UserID == "" {
			t.Fatal("missing user id")
		}
		if req.MerchantID == "" {
			t.Fatal("missing merchant id")
		}
		if req.Amount <= 0 {
			t.Fatalf("amount = %v, want positive", req.Amount)
		}
		if req.PaymentMethod == "" {
			t.Fatal("missing payment method")
		}
	}
}

func TestFraudInjectionRate(t *testing.T) {
	g := NewGenerator(100, 30, 42)

	const n = 20000
	for i := 0; i < n; i++ {
		g.Next()
	}

	_, fraud := g.Stats()
	rate := float64(fraud) / float64(n)
	// Base rates sum to 4.5%; velocity bursts push the effective rate higher.
	if rate < 0.02 || rate > 0.25 {
		t.Errorf("fraud rate = %.4f, want roughly 0.04-0.15", rate)
	}
}

func TestCardTestingAmountsAreSmall(t *testing.T) {
	g := NewGenerator(100, 30, 7)

	seen := false
	for i := 0; i < 20000 && !seen; i++ {
		req, pattern := g.Next()
		if pattern != PatternCardTesting {
			continue
		}
		seen = true
		if req.Amount < 1 || req.Amount > 5 {
			t.Errorf("card testing amount = %v, want [1,5]", req.Amount)
		}
	}
	if !seen {
		t.Fatal("no card testing pattern generated in 20000 draws")
	}
}

func TestVelocityBurstPinsUser(t *testing.T) {
	g := NewGenerator(100, 30, 9)

	for i := 0; i < 50000; i++ {
		_, pattern := g.Next()
		if pattern == PatternVelocityFraud && g.burstLeft > 0 {
			req, next := g.Next()
			if next != PatternVelocityFraud {
				t.Fatalf("burst draw pattern = %q, want velocity_fraud", next)
			}
			if req.UserID != g.burstUser {
				t.Fatalf("burst user = %s, want %s", req.UserID, g.burstUser)
			}
			return
		}
	}
	t.Fatal("no velocity burst generated")
}

func TestDeterministicWithSameSeed(t *testing.T) {
	a := NewGenerator(20, 10, 123)
	b := NewGenerator(20, 10, 123)

	for i := 0; i < 100; i++ {
		ra, pa := a.Next()
		rb, pb := b.Next()
		if ra.UserID != rb.UserID || ra.Amount != rb.Amount || pa != pb {
			t.Fatalf("draw %d diverged: %v/%v vs %v/%v", i, ra, pa, rb, pb)
		}
	}
}
