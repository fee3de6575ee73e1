package http

import (
	"net/http"
	"os"
	"sync"

	"github.com/ghodss/yaml"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/util"
)

// RegisterSwagger serves specPath (YAML) as JSON under /swagger/doc.json and
// the UI under /swagger/. The file is converted once, on first request.
func RegisterSwagger(e *echo.Echo, specPath string) {
	var (
		once    sync.Once
		doc     []byte
		loadErr error
	)
	e.GET("/swagger/doc.json", func(c echo.Context) error {
		once.Do(func() {
			data, err := os.ReadFile(specPath)
			if err != nil {
				loadErr = err
				return
			}
			doc, loadErr = yaml.YAMLToJSON(data)
		})
		if loadErr != nil {
			c.Logger().Errorf("load swagger spec %s: %v", specPath, loadErr)
			return c.JSON(http.StatusInternalServerError, util.Error("unable to load swagger spec"))
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, doc)
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)
}
