/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * VortexCut
 * Copyright (C) 2025 LittleDevMars
 *
 * This file is part of VortexCut.
 *
 * VortexCut is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * VortexCut is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with VortexCut.  If not, see <https://www.gnu.org/licenses/>.
 */
package subtitle

// Overlay is one prebuilt subtitle bitmap with its display window on the
// timeline. The host renders text to RGBA; the engine only composites.
type Overlay struct {
	StartMs int64
	EndMs   int64
	X       int32
	Y       int32
	Width   uint32
	Height  uint32
	RGBA    []byte // Width * Height * 4
}

// OverlayList holds the overlays passed into one export.
type OverlayList struct {
	Overlays []Overlay
}

func NewOverlayList() *OverlayList {
	return &OverlayList{}
}

func (l *OverlayList) Add(o Overlay) {
	l.Overlays = append(l.Overlays, o)
}

// ActiveAt returns the first overlay whose [StartMs, EndMs) window covers
// timestampMs.
func (l *OverlayList) ActiveAt(timestampMs int64) *Overlay {
	if l == nil {
		return nil
	}
	for i := range l.Overlays {
		o := &l.Overlays[i]
		if timestampMs >= o.StartMs && timestampMs < o.EndMs {
			return o
		}
	}
	return nil
}

// BlendRGBA composites the overlay onto an RGBA frame in place with
// source-over alpha: out = (src*a + dst*(255-a))/255. Fully transparent
// pixels are skipped, fully opaque ones copied. Coordinates outside the
// frame are clipped.
func BlendRGBA(frame []byte, frameWidth, frameHeight uint32, o *Overlay) {
	fw := int32(frameWidth)
	fh := int32(frameHeight)
	ow := int32(o.Width)
	oh := int32(o.Height)

	for oy := int32(0); oy < oh; oy++ {
		fy := o.Y + oy
		if fy < 0 || fy >= fh {
			continue
		}
		for ox := int32(0); ox < ow; ox++ {
			fx := o.X + ox
			if fx < 0 || fx >= fw {
				continue
			}

			oi := int(oy*ow+ox) * 4
			fi := int(fy*fw+fx) * 4
			if oi+3 >= len(o.RGBA) || fi+3 >= len(frame) {
				continue
			}

			sa := uint32(o.RGBA[oi+3])
			if sa == 0 {
				continue
			}

			sr := uint32(o.RGBA[oi])
			sg := uint32(o.RGBA[oi+1])
			sb := uint32(o.RGBA[oi+2])

			if sa == 255 {
				frame[fi] = byte(sr)
				frame[fi+1] = byte(sg)
				frame[fi+2] = byte(sb)
				frame[fi+3] = 255
				continue
			}

			da := 255 - sa
			dr := uint32(frame[fi])
			dg := uint32(frame[fi+1])
			db := uint32(frame[fi+2])

			frame[fi] = byte((sr*sa + dr*da) / 255)
			frame[fi+1] = byte((sg*sa + dg*da) / 255)
			frame[fi+2] = byte((sb*sa + db*da) / 255)
			frame[fi+3] = 255
		}
	}
}
