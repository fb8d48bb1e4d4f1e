package cluster

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"ThreatDigest/internal/domain"
)

var base = time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC)

func tagged(id string, published time.Time, tags []string, keywords []string) domain.Item {
	return domain.Item{
		ID:             id,
		NormalizedText: "text " + id,
		PublishedAt:    published,
		Tags:           tags,
		Keywords:       keywords,
	}
}

func fixture() []domain.Item {
	return []domain.Item{
		tagged("a", base, []string{"prompt_injection"}, []string{"jailbreak"}),
		tagged("b", base.Add(time.Hour), []string{"prompt_injection"}, []string{"prompt injection"}),
		tagged("c", base, []string{"regulatory"}, []string{"ai act"}),
		tagged("d", base, []string{"observability", "agentic"}, []string{"tracing", "agent"}),
		tagged("e", base.Add(2*time.Hour), []string{"vuln"}, []string{"agent", "tracing", "cve"}),
		tagged("f", base, nil, nil),
	}
}

func partition(res Result) []string {
	out := make([]string, 0, len(res.Clusters))
	for _, cl := range res.Clusters {
		out = append(out, strings.Join(cl.ItemIDs, ","))
	}
	sort.Strings(out)
	return out
}

func TestNewRejectsBadThreshold(t *testing.T) {
	t.Parallel()

	var cfgErr *domain.ConfigError
	if _, err := New(0, nil); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestClusterBuildsConnectedComponents(t *testing.T) {
	t.Parallel()

	c, _ := New(DefaultThreshold, nil)
	res := c.Cluster(fixture())

	want := []string{"a,b", "c", "d,e", "f"}
	if got := partition(res); !reflect.DeepEqual(got, want) {
		t.Fatalf("partition = %v, want %v", got, want)
	}
	for _, item := range res.Items {
		if item.ClusterID == "" {
			t.Fatalf("item %s has no cluster", item.ID)
		}
	}
	if res.Items[0].ClusterID != res.Items[1].ClusterID || res.Items[0].ClusterSize != 2 {
		t.Fatalf("a and b must share a cluster of size 2")
	}
}

func TestClusterIsOrderInvariant(t *testing.T) {
	t.Parallel()

	c, _ := New(DefaultThreshold, nil)
	forward := c.Cluster(fixture())

	reversed := fixture()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	backward := c.Cluster(reversed)

	if !reflect.DeepEqual(forward.Clusters, backward.Clusters) {
		t.Fatalf("clusters differ:\n%v\n%v", forward.Clusters, backward.Clusters)
	}
}

func TestRepresentativeSelection(t *testing.T) {
	t.Parallel()

	c, _ := New(DefaultThreshold, nil)
	res := c.Cluster(fixture())

	reps := map[string]string{}
	for _, cl := range res.Clusters {
		reps[strings.Join(cl.ItemIDs, ",")] = cl.RepresentativeID
	}
	if reps["a,b"] != "b" || reps["d,e"] != "e" {
		t.Fatalf("unscored representatives must be most recent, got %v", reps)
	}

	items := res.Items
	items[0].FinalScore = 80
	items[1].FinalScore = 40
	scored := Representatives(res.Clusters, items, true)
	for _, cl := range scored {
		if strings.Join(cl.ItemIDs, ",") == "a,b" && cl.RepresentativeID != "a" {
			t.Fatalf("scored representative must be highest score, got %s", cl.RepresentativeID)
		}
	}
}
