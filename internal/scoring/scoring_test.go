package scoring

import "testing"

func TestPerfectPlayEquality(t *testing.T) {
	c := Counts{Great: 100, MaxChain: 100, TotalNotes: 100}
	r := Score(c, true)
	if r.Total != 1_000_000 {
		t.Errorf("perfect play total = %d, want 1_000_000", r.Total)
	}
	if r.Grade != "S++" {
		t.Errorf("perfect play grade = %s, want S++", r.Grade)
	}
}

func TestAllMissFloor(t *testing.T) {
	c := Counts{MissCount: 50, TotalNotes: 50}
	r := Score(c, true)
	if r.Total != 50_000 {
		t.Errorf("all-miss total = %d, want 50_000 (clear bonus only)", r.Total)
	}
}

func TestScoreUpperBound(t *testing.T) {
	cases := []Counts{
		{Great: 40, Cool: 10, Good: 0, TotalNotes: 50, MaxChain: 50},
		{Great: 1, TotalNotes: 1, MaxChain: 1},
		{Good: 200, TotalNotes: 200, MaxChain: 200},
	}
	for _, c := range cases {
		r := Score(c, true)
		if r.Total > 1_000_000 {
			t.Errorf("%+v: total = %d exceeds 1_000_000", c, r.Total)
		}
	}
}

func TestChainTierTransition(t *testing.T) {
	var chain Chain
	var chainsSeen []int
	var tiersSeen []Tier
	for i := 0; i < 11; i++ {
		tiersSeen = append(tiersSeen, chain.Tier())
		chain.Advance(false)
		chainsSeen = append(chainsSeen, chain.Current())
	}

	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 12}
	for i, w := range want {
		if chainsSeen[i] != w {
			t.Errorf("chain after advance %d = %d, want %d", i+1, chainsSeen[i], w)
		}
	}
	if tiersSeen[9] != Normal {
		t.Errorf("tier before 10th advance = %v, want Normal (chain=9)", tiersSeen[9])
	}
	if tiersSeen[10] != Fever {
		t.Errorf("tier before 11th advance = %v, want Fever (chain=10)", tiersSeen[10])
	}
}

func TestChainResetsOnMiss(t *testing.T) {
	var chain Chain
	for i := 0; i < 15; i++ {
		chain.Advance(false)
	}
	if chain.Current() < 10 {
		t.Fatalf("setup: chain should be well into Fever, got %d", chain.Current())
	}
	chain.Advance(true)
	if chain.Current() != 0 {
		t.Errorf("chain after miss = %d, want 0", chain.Current())
	}
	if chain.Max() < 10 {
		t.Errorf("max chain should persist through a miss, got %d", chain.Max())
	}
}

func TestRankThresholds(t *testing.T) {
	cases := []struct {
		total int
		want  string
	}{
		{1_000_000, "S++"},
		{980_000, "S+"},
		{950_000, "S"},
		{900_000, "A"},
		{800_000, "B"},
		{700_000, "C"},
		{699_999, "D"},
		{0, "D"},
	}
	for _, tc := range cases {
		if got := Rank(tc.total); got != tc.want {
			t.Errorf("Rank(%d) = %s, want %s", tc.total, got, tc.want)
		}
	}
}
