package controllers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

// jsonFieldName reports validation failures under the request's JSON names
// instead of the Go field names.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

// invalidFields lists the JSON fields rejected by binding. ok is false when
// err is not a validation error (malformed JSON, wrong types).
func invalidFields(err error) (fields []string, ok bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	fields = make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields, true
}

// respondInvalid writes a 400 under key ("error" or "detail") with message,
// naming the offending fields when binding got that far.
func respondInvalid(c *gin.Context, key, message string, err error) {
	body := gin.H{key: message}
	if fields, ok := invalidFields(err); ok {
		body["fields"] = fields
	} else {
		body["reason"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}
