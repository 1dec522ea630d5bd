package clinic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
)

func patientFilesPath(patientID int64) string {
	return itemPath(patientsPath, patientID) + "files/"
}

// ListPatientFiles returns the documents attached to a patient.
func (c *Client) ListPatientFiles(ctx context.Context, patientID int64) ([]PatientFile, error) {
	if err := requireID("patient", patientID); err != nil {
		return nil, err
	}
	return listAll[PatientFile](ctx, c, patientFilesPath(patientID), nil)
}

// FileUpload describes a document to attach to a patient.
type FileUpload struct {
	Filename    string
	Content     io.Reader
	Category    string
	Description string
}

// UploadPatientFile sends the document as multipart/form-data. An empty
// category is sent as "other".
func (c *Client) UploadPatientFile(ctx context.Context, patientID int64, upload FileUpload) (PatientFile, error) {
	if err := requireID("patient", patientID); err != nil {
		return PatientFile{}, err
	}
	if upload.Content == nil {
		return PatientFile{}, fmt.Errorf("file content required")
	}
	category := upload.Category
	if category == "" {
		category = CategoryOther
	}
	if !slices.Contains(FileCategories, category) {
		return PatientFile{}, fmt.Errorf("unknown file category %q", category)
	}
	fields := map[string]string{"category": category}
	if upload.Description != "" {
		fields["description"] = upload.Description
	}
	req, err := MultipartRequest(http.MethodPost, patientFilesPath(patientID), fields, FilePart{
		Field:    "file",
		Filename: upload.Filename,
		Content:  upload.Content,
	})
	if err != nil {
		return PatientFile{}, err
	}
	return fetch[PatientFile](ctx, c, req)
}

// DownloadPatientFile returns the raw document bytes.
func (c *Client) DownloadPatientFile(ctx context.Context, patientID, fileID int64) ([]byte, error) {
	if err := requireID("patient", patientID); err != nil {
		return nil, err
	}
	if err := requireID("file", fileID); err != nil {
		return nil, err
	}
	req := NewRequest(http.MethodGet, itemPath(patientFilesPath(patientID), fileID)+"download/")
	req.Header = http.Header{"Accept": []string{"*/*"}}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) DeletePatientFile(ctx context.Context, patientID, fileID int64) error {
	if err := requireID("patient", patientID); err != nil {
		return err
	}
	if err := requireID("file", fileID); err != nil {
		return err
	}
	return c.remove(ctx, itemPath(patientFilesPath(patientID), fileID))
}
