package hidcore

import "testing"

func TestClamp8(t *testing.T) {
	tests := []struct {
		in   int32
		want int8
	}{
		{0, 0},
		{100, 100},
		{127, 127},
		{128, 127},
		{500, 127},
		{-127, -127},
		{-128, -127},
		{-500, -127},
	}
	for _, tt := range tests {
		if got := clamp8(tt.in); got != tt.want {
			t.Errorf("clamp8(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMouseAccumulatorHasPending(t *testing.T) {
	var m mouseAccumulator
	if m.hasPending() {
		t.Fatal("expected fresh accumulator to have nothing pending")
	}
	m.addMotion(5, 0, 0, 0)
	if !m.hasPending() {
		t.Fatal("expected motion to mark pending")
	}
}

func TestMouseAccumulatorTakeClears(t *testing.T) {
	var m mouseAccumulator
	m.addMotion(10, -10, 1, 0)
	buttons, dx, dy, wv, wh := m.take()
	if buttons != 0 || dx != 10 || dy != -10 || wv != 1 || wh != 0 {
		t.Fatalf("unexpected take result: %v %v %v %v %v", buttons, dx, dy, wv, wh)
	}
	if m.hasPending() {
		t.Fatal("expected accumulator drained after take")
	}
}

func TestMouseAccumulatorOverflowCarriesToNextTick(t *testing.T) {
	var m mouseAccumulator
	m.addMotion(300, 0, 0, 0)
	_, dx, _, _, _ := m.take()
	if dx != 127 {
		t.Fatalf("expected first take clamped to 127, got %d", dx)
	}
	if !m.hasPending() {
		t.Fatal("expected overflow remainder still pending")
	}
	_, dx2, _, _, _ := m.take()
	if dx2 != 127 {
		t.Fatalf("expected second take clamped to 127, got %d", dx2)
	}
	_, dx3, _, _, _ := m.take()
	if dx3 != 300-2*127 {
		t.Fatalf("expected remainder %d, got %d", 300-2*127, dx3)
	}
}

func TestMouseAccumulatorButtonChangeMarksPending(t *testing.T) {
	var m mouseAccumulator
	m.setButtons(0x01)
	if !m.hasPending() {
		t.Fatal("expected button change to mark pending even with no motion")
	}
	_, _, _, _, _ = m.take()
	if m.hasPending() {
		t.Fatal("expected no pending state after take absorbs the button change")
	}
}

func TestMouseAccumulatorReset(t *testing.T) {
	var m mouseAccumulator
	m.addMotion(5, 5, 0, 0)
	m.setButtons(0x01)
	m.reset()
	if m.hasPending() {
		t.Fatal("expected reset accumulator to have nothing pending")
	}
}
