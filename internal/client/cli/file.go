package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cipherchat/internal/api"
	"cipherchat/internal/netx"
)

// sendFile uploads a file to object storage through a presigned URL and then
// posts a message carrying the storage key. The message text (the file name)
// is encrypted like any other message; the attachment itself is stored
// out-of-band.
func (a *App) sendFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("Could not read file:", err)
		return err
	}
	fileName := filepath.Base(path)

	presigned, err := a.api.PresignPut(ctx)
	if err != nil {
		fmt.Println("Upload URL request failed:", err)
		return err
	}

	if err := netx.UploadToS3PresignedURL(presigned.URL, data); err != nil {
		fmt.Println("Upload failed:", err)
		return err
	}

	switch {
	case a.group.Group() != nil:
		err = a.group.Send(ctx, fileName, api.ContentTypeFile, presigned.StorageKey, fileName)
	case a.direct.Peer() != nil:
		err = a.direct.Send(ctx, fileName, api.ContentTypeFile, presigned.StorageKey)
	default:
		fmt.Println("Open a conversation or group first.")
		return nil
	}
	if err != nil {
		fmt.Println("Send failed:", err)
		return err
	}

	fmt.Printf("Uploaded %s (%d bytes).\n", fileName, len(data))
	return nil
}

// getFile fetches a presigned download URL for a stored attachment.
func (a *App) getFile(ctx context.Context, storageKey string) error {
	url, err := a.api.PresignGet(ctx, storageKey)
	if err != nil {
		fmt.Println("Download URL request failed:", err)
		return err
	}
	fmt.Println(url)
	return nil
}
