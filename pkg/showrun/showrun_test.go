package showrun

import (
	"strings"
	"testing"
)

const sampleConfig = `address-object ipv4 "H1"
  host 10.0.0.1
address-object ipv4 "N1"
  network 10.1.0.0 255.255.0.0
  zone LAN
address-group ipv4 "G1"
  address-object ipv4 "H1"
address-group ipv4 "Nested"
  address-group ipv4 "G1"
service-object "HTTP" TCP 80 80
access-rule ipv4 from LAN to WAN action allow
  source address any
  destination address any
  service name "HTTP"
`

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(cfg.Stanzas) != 6 {
		t.Fatalf("got %d stanzas, want 6", len(cfg.Stanzas))
	}

	h1 := cfg.Stanzas[0]
	if h1.Text != `address-object ipv4 "H1"` {
		t.Errorf("first stanza header = %q", h1.Text)
	}
	if len(h1.Children) != 1 || strings.TrimSpace(h1.Children[0].Text) != "host 10.0.0.1" {
		t.Errorf("H1 children = %+v", h1.Children)
	}

	rule := cfg.Stanzas[5]
	if len(rule.Children) != 3 {
		t.Errorf("rule has %d children, want 3", len(rule.Children))
	}
}

func TestFind(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := len(cfg.Find("address-object ipv4")); got != 2 {
		t.Errorf("Find(address-object ipv4) = %d, want 2", got)
	}
	if got := len(cfg.FindWithoutChild("address-group ipv4", "address-group ipv4")); got != 1 {
		t.Errorf("FindWithoutChild = %d, want 1", got)
	}
	nested := cfg.FindWithChild("address-group ipv4", "address-group ipv4")
	if len(nested) != 1 || nested[0].Text != `address-group ipv4 "Nested"` {
		t.Errorf("FindWithChild = %+v", nested)
	}
}

func TestSplitMultiEntity(t *testing.T) {
	const collapsed = `address-object ipv4 "A"
  host 10.0.0.1
  exit
  name B
  host 10.0.0.2
  exit
`
	cfg, err := Parse(strings.NewReader(collapsed))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	stanzas := cfg.Find("address-object ipv4")
	synthetic := SplitMultiEntity(stanzas, KindIPv4Object)

	if len(synthetic) != 1 {
		t.Fatalf("got %d synthetic stanzas, want 1", len(synthetic))
	}
	if synthetic[0].Text != "address-object ipv4 B" {
		t.Errorf("synthetic header = %q", synthetic[0].Text)
	}

	// The original keeps only its own partition.
	if len(stanzas[0].Children) != 2 {
		t.Errorf("original retained %d children, want 2", len(stanzas[0].Children))
	}
	if !strings.Contains(synthetic[0].Children[1].Text, "host 10.0.0.2") {
		t.Errorf("synthetic children = %+v", synthetic[0].Children)
	}
}

func TestSplitMultiEntityNoExit(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	stanzas := cfg.Find("address-object ipv4")
	before := len(stanzas[0].Children)

	if synthetic := SplitMultiEntity(stanzas, KindIPv4Object); synthetic != nil {
		t.Errorf("splitter produced %d stanzas from exit-free input", len(synthetic))
	}
	if len(stanzas[0].Children) != before {
		t.Errorf("splitter mutated exit-free stanza")
	}
}

func TestSplitMultiEntityRule(t *testing.T) {
	const collapsed = `access-rule ipv4 from LAN to WAN
  action allow
  exit
  action deny
  exit
`
	cfg, err := Parse(strings.NewReader(collapsed))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	synthetic := SplitMultiEntity(cfg.Find("access-rule ipv4"), KindRule)
	if len(synthetic) != 1 {
		t.Fatalf("got %d synthetic rules, want 1", len(synthetic))
	}
	if synthetic[0].Text != "access-rule ipv4 from LAN to WAN (Sub Rule)" {
		t.Errorf("synthetic rule header = %q", synthetic[0].Text)
	}
}
