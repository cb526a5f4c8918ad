// Package file uploads question images to Cloudinary and hands back the
// hosted URL the answer service and session history reference.
package file

import (
	"context"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const uploadFolder = "question-images"

// Uploader is what the upload handler depends on; tests substitute a
// stub instead of talking to Cloudinary.
type Uploader interface {
	UploadImage(ctx context.Context, file io.Reader) (string, error)
}

type FileUploader struct {
	cloudName string
	apiKey    string
	apiSecret string
}

func New(cloudName, apiKey, apiSecret string) *FileUploader {
	return &FileUploader{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

// UploadImage streams the image to Cloudinary and returns its secure
// URL. The URL is stored on the session as image_ref.
func (f *FileUploader) UploadImage(ctx context.Context, file io.Reader) (string, error) {
	cld, err := cloudinary.NewFromParams(f.cloudName, f.apiKey, f.apiSecret)
	if err != nil {
		return "", err
	}

	uploadResult, err := cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder: uploadFolder,
	})
	if err != nil {
		return "", err
	}

	return uploadResult.SecureURL, nil
}
