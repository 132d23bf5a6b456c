package clucov

import (
	"context"
	"math/rand/v2"
	"testing"
)

// generateBenchData returns n points drawn from k unit Gaussians spread 10
// apart along the diagonal.
func generateBenchData(n, dims, k int) [][]float64 {
	rng := rand.New(rand.NewPCG(42, 42))
	data := make([][]float64, 0, n)
	for c := range k {
		mean := make([]float64, dims)
		for j := range mean {
			mean[j] = float64(10 * c)
		}
		size := n / k
		if c == k-1 {
			size = n - len(data)
		}
		data = append(data, blob(rng, size, mean, 1)...)
	}
	return data
}

// --- Moments ---

func benchAccumulator(b *testing.B, dims int) {
	b.Helper()
	data := generateBenchData(1000, dims, 1)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		acc := NewAccumulator(dims)
		for _, x := range data {
			if err := acc.Update(x, 1); err != nil {
				b.Fatal(err)
			}
		}
		acc.Finalize()
	}
}

func BenchmarkAccumulator_2D(b *testing.B)  { benchAccumulator(b, 2) }
func BenchmarkAccumulator_10D(b *testing.B) { benchAccumulator(b, 10) }

// --- Separation ---

func benchSeparation(b *testing.B, dims int) {
	b.Helper()
	data := generateBenchData(400, dims, 2)
	s1, err := SummaryOf(data[:200], nil)
	if err != nil {
		b.Fatal(err)
	}
	s2, err := SummaryOf(data[200:], nil)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Separation(s1, s2); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSeparation_1D(b *testing.B)  { benchSeparation(b, 1) }
func BenchmarkSeparation_2D(b *testing.B)  { benchSeparation(b, 2) }
func BenchmarkSeparation_10D(b *testing.B) { benchSeparation(b, 10) }

// --- Assignment ---

func benchAssign(b *testing.B, n, workers int) {
	b.Helper()
	ds, err := NewDataset(generateBenchData(n, 2, 4), nil)
	if err != nil {
		b.Fatal(err)
	}
	cfg := testConfig()
	cfg.Workers = workers
	e, err := New(ds, cfg)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	if err := e.Initialize(ctx, RandomSeeds{K: 8}); err != nil {
		b.Fatal(err)
	}
	clusters := e.clusters()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.assign(ctx, clusters); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssign_1000_1(b *testing.B)  { benchAssign(b, 1000, 1) }
func BenchmarkAssign_10000_1(b *testing.B) { benchAssign(b, 10000, 1) }
func BenchmarkAssign_10000_4(b *testing.B) { benchAssign(b, 10000, 4) }

// --- Full Pipeline ---

func benchFullPipeline(b *testing.B, n int) {
	b.Helper()
	data := generateBenchData(n, 2, 3)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Fit(context.Background(), data, nil, Radius{R: 3}, testConfig()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFullPipeline_300(b *testing.B)  { benchFullPipeline(b, 300) }
func BenchmarkFullPipeline_1000(b *testing.B) { benchFullPipeline(b, 1000) }
