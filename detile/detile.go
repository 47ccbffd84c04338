/*
DESCRIPTION
  detile.go declares Engine, the interface standing in for the companion
  detiling engine (the IPU VDOA on i.MX6, or equivalent) that moves a
  tiled decoder output frame into a linear caller-owned frame.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package detile declares the boundary to the external tiling engine:
// one operation copying a tiled decoder-output framebuffer into a linear
// destination framebuffer. Modelled abstractly per spec.md's "IPU VDOA
// as external detiler" design note: an implementation may substitute any
// equivalent engine.
package detile

import (
	"github.com/pkg/errors"

	"github.com/ausocean/vpu/dma"
	"github.com/ausocean/vpu/framebuffer"
	"github.com/ausocean/vpu/status"
)

// Engine performs the single copy/detile operation from a tiled source
// DMA buffer to a linear destination DMA buffer.
type Engine interface {
	// Copy moves src (in src.Metrics' tiled layout) into dst (in
	// dst.Metrics' linear layout), honoring each side's total padded
	// size and destination color format. It returns status.Error
	// (wrapped) on failure, per spec.md 4.6.
	Copy(src, dst framebuffer.Framebuffer) error
}

// LinearCopy is a software Engine for sources that are already linear
// (the common case for a software-only deployment without a dedicated
// VDOA, and for every existing_examples-grounded test in this module):
// it performs a straight byte copy honoring each framebuffer's declared
// TotalSize, the detiler's external contract without needing to
// understand a tiled memory layout.
type LinearCopy struct{}

func (LinearCopy) Copy(src, dst framebuffer.Framebuffer) error {
	srcBuf, err := mapped(src.DMA, dma.Read)
	if err != nil {
		return status.Wrap(status.Error, err, "detile: mapping source buffer")
	}
	dstBuf, err := mapped(dst.DMA, dma.Write)
	if err != nil {
		return status.Wrap(status.Error, err, "detile: mapping destination buffer")
	}

	n := int(src.Metrics.TotalSize)
	if int(dst.Metrics.TotalSize) < n {
		n = int(dst.Metrics.TotalSize)
	}
	if len(srcBuf) < n || len(dstBuf) < n {
		return status.Wrap(status.Error, nil, "detile: DMA buffer smaller than framebuffer size")
	}
	copy(dstBuf[:n], srcBuf[:n])
	return nil
}

func mapped(buf dma.Buffer, flags dma.MapFlags) ([]byte, error) {
	if buf == nil {
		return nil, errors.New("detile: nil DMA buffer")
	}
	return buf.Map(flags)
}
