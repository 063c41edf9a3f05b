package filter

import (
	"testing"

	"github.com/maxvaer/cmsid/internal/scanner"
)

var (
	identified   = &scanner.Result{URL: "http://a", Accessible: true, Identified: true, CMS: "WordPress"}
	unidentified = &scanner.Result{URL: "http://b", Accessible: true}
	inaccessible = &scanner.Result{URL: "http://c", Error: "timeout"}
)

func TestIdentifiedFilter(t *testing.T) {
	var f IdentifiedFilter
	if f.ShouldFilter(identified) {
		t.Error("identified result should pass")
	}
	if !f.ShouldFilter(unidentified) || !f.ShouldFilter(inaccessible) {
		t.Error("unidentified results should be filtered")
	}
}

func TestInaccessibleFilter(t *testing.T) {
	var f InaccessibleFilter
	if f.ShouldFilter(identified) || f.ShouldFilter(unidentified) {
		t.Error("accessible results should pass")
	}
	if !f.ShouldFilter(inaccessible) {
		t.Error("inaccessible result should be filtered")
	}
}

func TestCMSMatchFilter(t *testing.T) {
	f := NewCMSMatchFilter("joomla, wordpress")
	if f.ShouldFilter(identified) {
		t.Error("WordPress should pass a case-insensitive match")
	}
	other := &scanner.Result{Accessible: true, Identified: true, CMS: "Drupal"}
	if !f.ShouldFilter(other) {
		t.Error("Drupal should be filtered")
	}
	if !f.ShouldFilter(unidentified) {
		t.Error("unidentified result should be filtered")
	}
}

func TestChain(t *testing.T) {
	c := NewChain()
	if hidden, _ := c.Apply(inaccessible); hidden {
		t.Error("empty chain should pass everything")
	}

	c.Add(InaccessibleFilter{})
	c.Add(IdentifiedFilter{})
	if c.Len() != 2 {
		t.Fatalf("Len = %d", c.Len())
	}

	hidden, name := c.Apply(inaccessible)
	if !hidden || name != "hide-inaccessible" {
		t.Errorf("Apply(inaccessible) = %v, %q", hidden, name)
	}
	hidden, name = c.Apply(unidentified)
	if !hidden || name != "only-identified" {
		t.Errorf("Apply(unidentified) = %v, %q", hidden, name)
	}
	if hidden, _ := c.Apply(identified); hidden {
		t.Error("identified result should pass the chain")
	}
}
