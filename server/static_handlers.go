package server

import (
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"golang.org/x/crypto/blake2b"
)

//go:embed static/*
var staticFiles embed.FS

// staticAsset is an embedded file ready to serve
type staticAsset struct {
	data        []byte
	contentType string
	etag        string
}

// loadStaticAssets reads every embedded asset once at startup, keyed by request path
func loadStaticAssets() (map[string]staticAsset, error) {
	root, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("[Server loadStaticAssets] %w", err)
	}

	assets := make(map[string]staticAsset)
	err = fs.WalkDir(root, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(root, name)
		if err != nil {
			return err
		}

		ctype := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
		if ctype == "" {
			ctype = http.DetectContentType(data)
		}
		if strings.HasPrefix(ctype, "text/") && !strings.Contains(strings.ToLower(ctype), "charset=") {
			ctype += "; charset=utf-8"
		}

		sum := blake2b.Sum256(data)
		assets["/"+name] = staticAsset{
			data:        data,
			contentType: ctype,
			etag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("[Server loadStaticAssets] %w", err)
	}
	return assets, nil
}

// StaticFileHandler serves embedded assets with an ETag so reloads are answered with 304
func (s *Server) StaticFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset, ok := s.assets[r.URL.Path]
		if !ok {
			logError(r.Method, r.URL.Path, "asset not found")
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}

		w.Header().Set("ETag", asset.etag)
		if r.Header.Get("If-None-Match") == asset.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", asset.contentType)
		_, _ = w.Write(asset.data)
	}
}
