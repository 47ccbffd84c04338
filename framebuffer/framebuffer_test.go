package framebuffer

import "testing"

func TestComputeYUV420Progressive(t *testing.T) {
	m := Compute(YUV420, 1920, 1080, 4096, false, false)
	if m.AlignedWidth != 1920 {
		t.Errorf("AlignedWidth = %d, want 1920", m.AlignedWidth)
	}
	if m.AlignedHeight != 1088 {
		t.Errorf("AlignedHeight = %d, want 1088 (1080 rounded up to 16)", m.AlignedHeight)
	}
	if m.YStride != 1920 {
		t.Errorf("YStride = %d, want 1920", m.YStride)
	}
	if m.UVStride != 960 {
		t.Errorf("UVStride = %d, want 960", m.UVStride)
	}
	if m.UOffset != m.YSize {
		t.Errorf("UOffset = %d, want YSize %d", m.UOffset, m.YSize)
	}
	if m.VOffset != m.UOffset+m.UVSize {
		t.Errorf("VOffset = %d, want UOffset+UVSize = %d", m.VOffset, m.UOffset+m.UVSize)
	}
	wantTotal := m.YSize + 2*m.UVSize + m.MvColSize
	if m.TotalSize != wantTotal {
		t.Errorf("TotalSize = %d, want %d", m.TotalSize, wantTotal)
	}
}

func TestComputeInterlacedHeightAlignment(t *testing.T) {
	m := Compute(YUV420, 720, 576, 1, true, false)
	if m.AlignedHeight != 576 {
		t.Errorf("AlignedHeight = %d, want 576 (already %%32)", m.AlignedHeight)
	}
	m2 := Compute(YUV420, 720, 540, 1, true, false)
	if m2.AlignedHeight != 544 {
		t.Errorf("AlignedHeight = %d, want 544 (540 rounded up to 32)", m2.AlignedHeight)
	}
}

func TestComputeChromaInterleave(t *testing.T) {
	m := Compute(YUV420, 640, 480, 1, false, true)
	if m.VOffset != m.UOffset {
		t.Errorf("VOffset = %d, want equal to UOffset %d when interleaved", m.VOffset, m.UOffset)
	}
	wantTotal := m.YSize + m.UVSize + m.MvColSize
	if m.TotalSize != wantTotal {
		t.Errorf("TotalSize = %d, want %d", m.TotalSize, wantTotal)
	}
}

func TestComputeYUV400HasNoChromaPlanes(t *testing.T) {
	m := Compute(YUV400, 640, 480, 1, false, false)
	if m.UVSize != 0 || m.UVStride != 0 {
		t.Errorf("YUV400 should have zero chroma plane, got UVStride=%d UVSize=%d", m.UVStride, m.UVSize)
	}
	if m.TotalSize != m.YSize {
		t.Errorf("TotalSize = %d, want YSize %d for YUV400", m.TotalSize, m.YSize)
	}
}

func TestComputeIdempotentOnAlreadyAlignedDimensions(t *testing.T) {
	m1 := Compute(YUV420, 1920, 1080, 4096, false, false)
	m2 := Compute(YUV420, m1.AlignedWidth, m1.AlignedHeight, 4096, false, false)
	if m1.TotalSize != m2.TotalSize || m1.YStride != m2.YStride {
		t.Errorf("Compute is not idempotent on pre-aligned dimensions: %+v vs %+v", m1, m2)
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct{ v, n, want uint }{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{5, 0, 5},
		{5, 1, 5},
	}
	for _, c := range cases {
		if got := alignUp(c.v, c.n); got != c.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", c.v, c.n, got, c.want)
		}
	}
}
