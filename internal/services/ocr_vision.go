package services

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"quizform-backend/internal/logger"
)

// VisionOCR reads page images with Cloud Vision document text detection.
// Credentials come from the environment (ADC).
type VisionOCR struct {
	client *vision.ImageAnnotatorClient
	log    *logger.Logger
}

func NewVisionOCR(ctx context.Context, log *logger.Logger) (*VisionOCR, error) {
	if log == nil {
		log = logger.Nop()
	}
	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionOCR{client: client, log: log.With("service", "VisionOCR")}, nil
}

func (o *VisionOCR) Close() error {
	return o.client.Close()
}

func (o *VisionOCR) ExtractText(ctx context.Context, png []byte) (string, error) {
	if len(png) == 0 {
		return "", &OcrError{Err: fmt.Errorf("empty image")}
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: png},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	}
	resp, err := o.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", &OcrError{Err: fmt.Errorf("vision BatchAnnotateImages: %w", err)}
	}
	return visionText(resp)
}

func visionText(resp *visionpb.BatchAnnotateImagesResponse) (string, error) {
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", &OcrError{Err: fmt.Errorf("vision annotate error: %s", r0.Error.Message)}
	}
	if r0.FullTextAnnotation == nil {
		return "", nil
	}
	return strings.TrimSpace(r0.FullTextAnnotation.Text), nil
}
