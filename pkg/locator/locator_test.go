package locator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategySelector(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		want     string
	}{
		{"exact text", Text("Report"), `text="Report"`},
		{"partial text", PartialText("Esci"), "text=Esci"},
		{"role", Role("button", "Cerca"), `role=button[name="Cerca"]`},
		{"id prefix and suffix", IDPattern("generic_menu_button-", "-btnEl"), `css=[id^="generic_menu_button-"][id$="-btnEl"]`},
		{"id suffix only", IDPattern("", "-btnEl"), `css=[id$="-btnEl"]`},
		{"attribute", Attr("name", "Username"), `css=[name="Username"]`},
		{"xpath", XPath("//span[text()='OK']"), "xpath=//span[text()='OK']"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.strategy.Selector())
		})
	}
}

// Every chain position must be reachable: resolution succeeds whenever
// exactly the Nth strategy matches, for every N.
func TestResolve_NthStrategyMatches(t *testing.T) {
	chain := NewChain("target",
		Text("a"),
		PartialText("b"),
		Role("button", "c"),
		IDPattern("d-", ""),
		Attr("name", "e"),
	)

	for n := range chain.Strategies {
		t.Run(fmt.Sprintf("strategy %d", n), func(t *testing.T) {
			winner := chain.Strategies[n].Selector()
			probe := func(selector string) (bool, error) {
				return selector == winner, nil
			}

			resolved, err := Resolve(chain, probe)
			require.NoError(t, err)
			assert.Equal(t, chain.Strategies[n], resolved)
		})
	}
}

func TestResolve_TriesInOrder(t *testing.T) {
	chain := NewChain("target", Text("first"), Text("second"))

	var tried []string
	probe := func(selector string) (bool, error) {
		tried = append(tried, selector)
		return selector == chain.Strategies[1].Selector(), nil
	}

	_, err := Resolve(chain, probe)
	require.NoError(t, err)
	assert.Equal(t, []string{
		chain.Strategies[0].Selector(),
		chain.Strategies[1].Selector(),
	}, tried)
}

func TestResolve_Exhausted(t *testing.T) {
	chain := NewChain("missing element", Text("a"), Text("b"))

	_, err := Resolve(chain, func(string) (bool, error) { return false, nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing element")
}

func TestResolve_ProbeErrorDoesNotAbortChain(t *testing.T) {
	chain := NewChain("target", Text("broken"), Text("works"))

	probe := func(selector string) (bool, error) {
		if selector == chain.Strategies[0].Selector() {
			return false, errors.New("stale element")
		}
		return true, nil
	}

	resolved, err := Resolve(chain, probe)
	require.NoError(t, err)
	assert.Equal(t, chain.Strategies[1], resolved)
}

func TestResolve_AllErrorsSurfacesLast(t *testing.T) {
	chain := NewChain("target", Text("a"))

	_, err := Resolve(chain, func(string) (bool, error) {
		return false, errors.New("page crashed")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page crashed")
}

func TestMenuEntry_FallbackOrder(t *testing.T) {
	chain := MenuEntry("Report")
	require.NotEmpty(t, chain.Strategies)

	// Most precise strategy first, broad contains-match last.
	assert.Equal(t, KindText, chain.Strategies[0].Kind)
	assert.Equal(t, KindXPath, chain.Strategies[len(chain.Strategies)-1].Kind)
}
