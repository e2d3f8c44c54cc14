package world

import (
	"testing"
)

func TestCollectionAddRemoveIndexes(t *testing.T) {
	c := NewCollection()
	ground := NewBlock(30, 200, TagGround)
	trunk := NewAnchoredBlock(60, 170, 60, TagTrunk)

	if err := c.Add(ground, LayerGround); err != nil {
		t.Fatalf("add ground: %v", err)
	}
	if err := c.Add(trunk, LayerTrunk); err != nil {
		t.Fatalf("add trunk: %v", err)
	}
	if err := c.Add(ground, LayerGround); err == nil {
		t.Fatalf("expected duplicate add to fail")
	}
	if err := c.Add(nil, LayerGround); err == nil {
		t.Fatalf("expected nil add to fail")
	}

	if c.Len() != 2 || c.Count(LayerGround) != 1 || c.Count(LayerTrunk) != 1 {
		t.Fatalf("unexpected counts: len=%d ground=%d trunk=%d", c.Len(), c.Count(LayerGround), c.Count(LayerTrunk))
	}
	if cols := c.Columns(); len(cols) != 2 || cols[0] != 30 || cols[1] != 60 {
		t.Fatalf("unexpected columns: %v", cols)
	}

	if !c.Remove(ground.ID()) {
		t.Fatalf("expected remove to succeed")
	}
	if c.Remove(ground.ID()) {
		t.Fatalf("second remove should report false")
	}
	if _, _, ok := c.Get(ground.ID()); ok {
		t.Fatalf("removed object still retrievable")
	}
	if cols := c.Columns(); len(cols) != 1 || cols[0] != 60 {
		t.Fatalf("column index not cleaned up: %v", cols)
	}
	if c.Count(LayerGround) != 0 {
		t.Fatalf("layer count not decremented")
	}
}

func TestCollectionEvictColumnsUsesAnchor(t *testing.T) {
	c := NewCollection()
	for x := -90; x <= 90; x += 30 {
		if err := c.Add(NewBlock(x, 300, TagGround), LayerGround); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	// A leaf hanging over column -30 but anchored to the trunk at 0.
	leaf := NewLeaf([2]float64{-30, 100}, 0, LeafSchedule{StartDelay: 1}, testMotion(), nil)
	if err := c.Add(leaf, LayerLeaf); err != nil {
		t.Fatalf("add leaf: %v", err)
	}

	removed := c.EvictColumns(func(column int) bool { return column < 0 })
	if removed != 3 {
		t.Fatalf("expected 3 evictions, got %d", removed)
	}
	if _, _, ok := c.Get(leaf.ID()); !ok {
		t.Fatalf("leaf anchored at column 0 must survive eviction of negative columns")
	}
	for _, block := range c.Blocks(LayerGround) {
		if block.X < 0 {
			t.Fatalf("block at %d should have been evicted", block.X)
		}
	}
}

func TestCollectionSnapshotAllowsMutation(t *testing.T) {
	c := NewCollection()
	for x := 0; x < 5; x++ {
		if err := c.Add(NewLeaf([2]float64{float64(x * 30), 0}, x*30, LeafSchedule{}, testMotion(), nil), LayerLeaf); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	for _, leaf := range c.Leaves() {
		c.Remove(leaf.ID())
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty collection, got %d", c.Len())
	}
}

func TestCollectionLayerCollisionIsSymmetric(t *testing.T) {
	c := NewCollection()
	c.SetLayersCollide(LayerLeaf, LayerGround, true)
	if !c.LayersCollide(LayerGround, LayerLeaf) {
		t.Fatalf("expected ground/leaf collisions to be enabled")
	}
	if c.LayersCollide(LayerTrunk, LayerLeaf) {
		t.Fatalf("trunk/leaf collisions should be disabled")
	}
}

func TestRoundDownFloorsNegativeCoordinates(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{29.9, 0},
		{30, 30},
		{-0.1, -30},
		{-30, -30},
		{-31, -60},
		{-400, -420},
		{730, 720},
	}
	for _, tt := range tests {
		got := RoundDown(tt.in, 30)
		if got != tt.want {
			t.Fatalf("RoundDown(%v) = %d, want %d", tt.in, got, tt.want)
		}
		if got%30 != 0 {
			t.Fatalf("RoundDown(%v) = %d is not a block multiple", tt.in, got)
		}
	}
	if got := RoundUp(-400, 30); got != -390 {
		t.Fatalf("RoundUp(-400) = %d, want -390", got)
	}
}
