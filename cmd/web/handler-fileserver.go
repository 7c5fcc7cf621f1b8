package main

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// fileServerHandler serves ui/static. Unknown paths get the not found page with the session loaded so that the
// navigation shows the right links.
func (app *application) fileServerHandler() (http.Handler, error) {
	fileRoot := path.Join(".", "ui", "static")
	var err error
	if _, err = os.Stat(fileRoot); os.IsNotExist(err) {
		var dir string
		dir, err = findModuleDir()
		if err != nil {
			return nil, fmt.Errorf("findModuleDir: %w", err)
		}
		fileRoot = path.Join(dir, "ui", "static")
	}
	var stat os.FileInfo
	if stat, err = os.Stat(fileRoot); os.IsNotExist(err) || !stat.IsDir() {
		return nil, fmt.Errorf("file server root %s does not exist or is not a directory", fileRoot)
	}
	fileServer := http.FileServer(http.Dir(fileRoot))

	session := func(next http.Handler) http.Handler {
		return app.recoverPanic(noCache(app.sessionManager.LoadAndSave(
			app.webAuthnHandler.AuthenticateMiddleware(app.logAndTraceRequest(secureHeaders(
				commonContext(app.timeout(next))))))))
	}

	noAuth := func(next http.Handler) http.Handler {
		return app.recoverPanic(app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
			commonContext(app.timeout(next))))))
	}

	notFound := session(http.HandlerFunc(app.notFound))
	static := noAuth(cacheForever(fileServer))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cleanPath := filepath.Clean(r.URL.Path)
		if strings.Contains(cleanPath, "..") || strings.HasSuffix(r.URL.Path, "/") {
			notFound.ServeHTTP(w, r)
			return
		}
		if _, statErr := os.Stat(filepath.Join(fileRoot, cleanPath)); statErr != nil {
			notFound.ServeHTTP(w, r)
			return
		}
		static.ServeHTTP(w, r)
	}), nil
}
