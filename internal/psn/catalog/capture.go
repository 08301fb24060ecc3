// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates capture variants.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Vendor ugcType values.
const (
	ugcTypeImage = 1
	ugcTypeVideo = 2
)

// UgcType returns the vendor discriminator for k.
func (k Kind) UgcType() int {
	switch k {
	case KindImage:
		return ugcTypeImage
	case KindVideo:
		return ugcTypeVideo
	default:
		return 0
	}
}

// Capture is a normalized gallery entry. Exactly one of Image or Video is
// set, matching Kind.
type Capture struct {
	ID            string
	Title         string
	Game          *string
	Preview       *string
	CreatedAt     *string
	TitleImageURL *string

	FileType   *string
	FileSize   *int64
	Resolution *string
	ExpireAt   *string

	Kind  Kind
	Image *ImageDetails
	Video *VideoDetails
}

// ImageDetails holds fields only screenshots carry.
type ImageDetails struct {
	ScreenshotURL *string
}

// VideoDetails holds fields only video clips carry.
type VideoDetails struct {
	Duration    *float64
	DownloadURL *string
	VideoURL    *string
}

// MediaURL returns the URL of the full-size file for the capture.
func (c Capture) MediaURL() string {
	switch c.Kind {
	case KindImage:
		if c.Image != nil && c.Image.ScreenshotURL != nil {
			return *c.Image.ScreenshotURL
		}
		return deref(c.Preview)
	case KindVideo:
		if c.Video == nil {
			return ""
		}
		if c.Video.DownloadURL != nil {
			return *c.Video.DownloadURL
		}
		return deref(c.Video.VideoURL)
	default:
		return ""
	}
}

type captureJSON struct {
	ID            string  `json:"id"`
	Type          Kind    `json:"type"`
	UgcType       int     `json:"ugcType"`
	Title         string  `json:"title"`
	Game          *string `json:"game"`
	Preview       *string `json:"preview"`
	CreatedAt     *string `json:"createdAt"`
	TitleImageURL *string `json:"titleImageUrl"`
	FileType      *string `json:"fileType"`
	FileSize      *int64  `json:"fileSize"`
	Resolution    *string `json:"resolution"`
	ExpireAt      *string `json:"expireAt"`
}

type imageJSON struct {
	captureJSON
	ScreenshotURL *string `json:"screenshotUrl"`
}

type videoJSON struct {
	captureJSON
	Duration    *float64 `json:"duration"`
	DownloadURL *string  `json:"downloadUrl"`
	VideoURL    *string  `json:"videoUrl"`
}

// MarshalJSON emits only the fields of the capture's own variant.
func (c Capture) MarshalJSON() ([]byte, error) {
	base := captureJSON{
		ID:            c.ID,
		Type:          c.Kind,
		UgcType:       c.Kind.UgcType(),
		Title:         c.Title,
		Game:          c.Game,
		Preview:       c.Preview,
		CreatedAt:     c.CreatedAt,
		TitleImageURL: c.TitleImageURL,
		FileType:      c.FileType,
		FileSize:      c.FileSize,
		Resolution:    c.Resolution,
		ExpireAt:      c.ExpireAt,
	}
	switch c.Kind {
	case KindImage:
		out := imageJSON{captureJSON: base}
		if c.Image != nil {
			out.ScreenshotURL = c.Image.ScreenshotURL
		}
		return json.Marshal(out)
	case KindVideo:
		out := videoJSON{captureJSON: base}
		if c.Video != nil {
			out.Duration = c.Video.Duration
			out.DownloadURL = c.Video.DownloadURL
			out.VideoURL = c.Video.VideoURL
		}
		return json.Marshal(out)
	default:
		return nil, fmt.Errorf("capture %s: unknown kind %q", c.ID, c.Kind)
	}
}

// rawCapture is one vendor ugcDocument entry. Only the fields used for
// normalization are declared.
type rawCapture struct {
	ID                string   `json:"id" validate:"required"`
	Title             *string  `json:"title"`
	SceTitleName      *string  `json:"sceTitleName"`
	UgcType           int      `json:"ugcType" validate:"oneof=1 2"`
	LargePreviewImage *string  `json:"largePreviewImage"`
	SmallPreviewImage *string  `json:"smallPreviewImage"`
	ThumbnailURL      *string  `json:"thumbnailUrl"`
	UploadDate        *string  `json:"uploadDate"`
	CaptureDate       *string  `json:"captureDate"`
	CreationTimestamp *string  `json:"creationTimestamp"`
	TitleImageURL     *string  `json:"titleImageUrl"`
	VideoDuration     *float64 `json:"videoDuration"`
	DownloadURL       *string  `json:"downloadUrl"`
	VideoURL          *string  `json:"videoUrl"`
	ScreenshotURL     *string  `json:"screenshotUrl"`
	FileType          *string  `json:"fileType"`
	FileSize          *float64 `json:"fileSize"`
	Resolution        *string  `json:"resolution"`
	ExpireAt          *string  `json:"expireAt"`
	TranscodeStatus   *string  `json:"transcodeStatus"`
}

type rawResponse struct {
	UgcDocument []rawCapture `json:"ugcDocument" validate:"required,dive"`
}

// normalize maps a validated raw record to its variant.
func normalize(r rawCapture) (Capture, error) {
	c := Capture{
		ID:            r.ID,
		Title:         firstNonEmpty("Capture", r.Title, r.SceTitleName),
		Game:          nonEmpty(r.SceTitleName),
		Preview:       coalesce(r.LargePreviewImage, r.SmallPreviewImage, r.ThumbnailURL),
		CreatedAt:     coalesce(r.UploadDate, r.CaptureDate, r.CreationTimestamp),
		TitleImageURL: nonEmpty(r.TitleImageURL),
		FileType:      nonEmpty(r.FileType),
		Resolution:    nonEmpty(r.Resolution),
		ExpireAt:      nonEmpty(r.ExpireAt),
	}
	if r.FileSize != nil {
		size := int64(*r.FileSize)
		c.FileSize = &size
	}

	switch r.UgcType {
	case ugcTypeImage:
		c.Kind = KindImage
		c.Image = &ImageDetails{ScreenshotURL: nonEmpty(r.ScreenshotURL)}
	case ugcTypeVideo:
		c.Kind = KindVideo
		c.Video = &VideoDetails{
			Duration:    r.VideoDuration,
			DownloadURL: nonEmpty(r.DownloadURL),
			VideoURL:    nonEmpty(r.VideoURL),
		}
	default:
		return Capture{}, fmt.Errorf("capture %s: unsupported ugcType %d", r.ID, r.UgcType)
	}
	return c, nil
}

func coalesce(vals ...*string) *string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}

func nonEmpty(v *string) *string {
	return coalesce(v)
}

func firstNonEmpty(fallback string, vals ...*string) string {
	if v := coalesce(vals...); v != nil {
		return *v
	}
	return fallback
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
