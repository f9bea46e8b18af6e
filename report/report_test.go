package report

import (
	"encoding/json"
	"testing"
)

func TestFlexIntDecoding(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{`75`, 75},
		{`75.9`, 75},
		{`"75"`, 75},
		{`" 75 "`, 75},
		{`"high"`, 0},
		{`null`, 0},
	}
	for _, c := range cases {
		var n FlexInt
		if err := json.Unmarshal([]byte(c.in), &n); err != nil {
			t.Errorf("Unmarshal(%s): %v", c.in, err)
			continue
		}
		if int(n) != c.want {
			t.Errorf("FlexInt(%s) = %d, want %d", c.in, n, c.want)
		}
	}
}

func TestPageRefJSON(t *testing.T) {
	b, err := json.Marshal(PageRef{Num: 7, Known: true})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "7" {
		t.Errorf("known page = %s, want 7", b)
	}

	b, err = json.Marshal(PageRef{})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"?"` {
		t.Errorf("unknown page = %s, want \"?\"", b)
	}

	var p PageRef
	if err := json.Unmarshal([]byte(`"12"`), &p); err != nil {
		t.Fatal(err)
	}
	if !p.Known || p.Num != 12 {
		t.Errorf("decoded %+v from \"12\", want known page 12", p)
	}
	if err := json.Unmarshal([]byte(`"?"`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Known {
		t.Errorf("decoded %+v from \"?\", want unknown", p)
	}
}

func TestAssessmentTolerantDecode(t *testing.T) {
	raw := `{
		"risk_score": "72",
		"risk_level": "nonsense",
		"violations": [{"law":"GDPR","article":"Art. 6","title":"Lawfulness of processing","reason":"r",
			"citations":[{"source":"GDPR","page":"?","id":"g1"}]}],
		"recommendations": ["fix it"]
	}`
	var a Assessment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if a.RiskScore != 72 {
		t.Errorf("risk_score = %d, want 72", a.RiskScore)
	}
	if len(a.Violations) != 1 || a.Violations[0].Citations[0].Page.Known {
		t.Errorf("violations decoded wrong: %+v", a.Violations)
	}
}
