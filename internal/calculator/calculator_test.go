package calculator

import (
	"math"
	"testing"
	"time"

	"PatternSentinel/internal/model"
)

func assertClose(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %.10f, want %.10f", name, got, want)
	}
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5, 6}, 3)
	for i := 0; i < 2; i++ {
		if !math.IsNaN(got[i]) {
			t.Errorf("SMA[%d] = %v, want NaN", i, got[i])
		}
	}
	assertClose(t, "SMA[2]", got[2], 2)
	assertClose(t, "SMA[5]", got[5], 5)
}

func TestSMA_ShortInput(t *testing.T) {
	got := SMA([]float64{1, 2}, 5)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Errorf("SMA[%d] = %v, want NaN", i, v)
		}
	}
}

func TestSMA_RecoversAfterGap(t *testing.T) {
	values := []float64{1, 2, 3, math.NaN(), 5, 6, 7, 8, 9, 10}
	got := SMA(values, 3)
	assertClose(t, "SMA[2]", got[2], 2)
	for i := 3; i <= 5; i++ {
		if !math.IsNaN(got[i]) {
			t.Errorf("SMA[%d] = %v, want NaN for a window holding the gap", i, got[i])
		}
	}
	assertClose(t, "SMA[6]", got[6], 6)
	assertClose(t, "SMA[9]", got[9], 9)
}

func TestEMA_Gaps(t *testing.T) {
	// span 3 gives alpha 0.5; the gap decays the old mean by 0.5 twice.
	got := EMA([]float64{10, math.NaN(), 20}, 3)
	assertClose(t, "EMA[0]", got[0], 10)
	assertClose(t, "EMA[1]", got[1], 10)
	assertClose(t, "EMA[2]", got[2], (0.25*10+0.5*20)/0.75)

	lead := EMA([]float64{math.NaN(), 4, 8}, 3)
	if !math.IsNaN(lead[0]) {
		t.Errorf("EMA[0] = %v, want NaN before the first value", lead[0])
	}
	assertClose(t, "EMA[1]", lead[1], 4)
	assertClose(t, "EMA[2]", lead[2], 6)
}

func TestCompute_EarlyMissingClose(t *testing.T) {
	bars := make([]model.Bar, 150)
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = model.Bar{Date: d.AddDate(0, 0, i), Close: 10 + float64(i%7), Volume: 1000}
	}
	bars[3].Close = math.NaN()
	ind := Compute(&model.Series{Symbol: "600000", Bars: bars}, DefaultMACD)
	last := len(bars) - 1
	if !Defined(ind.MA5[last], ind.MA10[last], ind.MA30[last], ind.MA60[last]) {
		t.Errorf("moving averages stuck undefined after an early gap: %v %v %v %v",
			ind.MA5[last], ind.MA10[last], ind.MA30[last], ind.MA60[last])
	}
	if !Defined(ind.MACD.DIF[last], ind.MACD.DEA[last], ind.MACD.Hist[last]) {
		t.Error("MACD stuck undefined after an early gap")
	}
	if !math.IsNaN(ind.MA60[62]) {
		t.Error("MA60 window holding the gap should be undefined")
	}
}

func TestEMA_SeededWithFirstValue(t *testing.T) {
	got := EMA([]float64{10, 20, 20}, 3)
	assertClose(t, "EMA[0]", got[0], 10)
	assertClose(t, "EMA[1]", got[1], 15)
	assertClose(t, "EMA[2]", got[2], 17.5)
}

func TestComputeMACD_Constant(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 12.5
	}
	m := ComputeMACD(closes, DefaultMACD)
	for i := 0; i < 25; i++ {
		if !math.IsNaN(m.Hist[i]) {
			t.Fatalf("Hist[%d] defined before long window", i)
		}
	}
	for i := 25; i < 40; i++ {
		assertClose(t, "DIF", m.DIF[i], 0)
		assertClose(t, "Hist", m.Hist[i], 0)
	}
}

func TestComputeMACD_HistIsTwiceSpread(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 10 + math.Sin(float64(i)/4)
	}
	m := ComputeMACD(closes, DefaultMACD)
	for i := 25; i < 60; i++ {
		assertClose(t, "Hist", m.Hist[i], 2*(m.DIF[i]-m.DEA[i]))
	}
}

func TestCompute_LeavesSeriesUntouched(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, 70)
	for i := range bars {
		bars[i] = model.Bar{Date: d.AddDate(0, 0, i), Close: float64(10 + i), Volume: 100}
	}
	s := &model.Series{Symbol: "600000", Bars: bars}
	ind := Compute(s, DefaultMACD)
	ind.Closes[0] = -1
	if s.Bars[0].Close != 10 {
		t.Fatal("indicator slices alias the series")
	}
	assertClose(t, "MA5", ind.MA5[69], 77)
	assertClose(t, "MA60", ind.MA60[69], 49.5)
	if !math.IsNaN(ind.MA60[58]) {
		t.Error("MA60 defined too early")
	}
}

func TestWindowHelpers(t *testing.T) {
	v := []float64{3, 1, 4, 1, 5}
	if i := ArgMin(v); i != 1 {
		t.Errorf("ArgMin = %d, want 1 (first occurrence)", i)
	}
	if i := ArgMax(v); i != 4 {
		t.Errorf("ArgMax = %d, want 4", i)
	}
	if _, ok := Mean([]float64{1, math.NaN()}); ok {
		t.Error("Mean over NaN should fail")
	}
	if m, ok := Mean(Tail(v, 2)); !ok || m != 3 {
		t.Errorf("Mean(Tail) = %v,%v", m, ok)
	}
	if len(Tail(v, 10)) != 5 {
		t.Error("Tail longer than input")
	}
}
