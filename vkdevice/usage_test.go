package vkdevice

import (
	"strings"
	"testing"
)

func TestConfigHasNextAndLinkedConfig(t *testing.T) {
	c := NewConfig("base", 2)
	if c.HasNext() {
		t.Fatalf("fresh Config reports HasNext")
	}
	if _, err := c.LinkedConfig(); err == nil {
		t.Fatalf("LinkedConfig on an unlinked Config succeeded")
	}

	c.Linked = NewConfig("override", 1)
	if !c.HasNext() {
		t.Fatalf("Config with Linked set reports no HasNext")
	}
	linked, err := c.LinkedConfig()
	if err != nil {
		t.Fatalf("LinkedConfig: %v", err)
	}
	if linked.Name != "override" {
		t.Fatalf("LinkedConfig().Name = %q, want %q", linked.Name, "override")
	}
}

func TestConfigStringChainsLinked(t *testing.T) {
	c := NewConfig("base", 1)
	c.StringProps["display"] = "window"
	c.Linked = NewConfig("override", 1)
	c.Linked.IntProps["frames"] = 2

	s := c.String()
	for _, want := range []string{"base", "override", "window", "frames"} {
		if !strings.Contains(s, want) {
			t.Fatalf("Config.String() = %q, want it to mention %q", s, want)
		}
	}
}
