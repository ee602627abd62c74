package kamux

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

// MaxBodySize limit the body read by BodyJson and BodyForm
var MaxBodySize int64 = 10 << 20

// Context is a wrapper of responseWriter, request, and params map
type Context struct {
	http.ResponseWriter
	*http.Request
	Params map[string]string
}

// Json return json to the client
func (c *Context) Json(code int, body any) {
	c.ResponseWriter.Header().Set("Content-Type", "application/json")
	c.SetStatus(code)
	enc := json.NewEncoder(c.ResponseWriter)
	err := enc.Encode(body)
	logger.CheckError(err)
}

// JsonIndent return json indented to the client
func (c *Context) JsonIndent(code int, body any) {
	c.ResponseWriter.Header().Set("Content-Type", "application/json")
	c.SetStatus(code)
	enc := json.NewEncoder(c.ResponseWriter)
	enc.SetIndent("", "\t")
	err := enc.Encode(body)
	logger.CheckError(err)
}

// Text return text with custom code to the client
func (c *Context) Text(code int, body string) {
	c.ResponseWriter.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.SetStatus(code)
	_, _ = c.ResponseWriter.Write([]byte(body))
}

// Html write an already rendered page
func (c *Context) Html(code int, body []byte) {
	c.ResponseWriter.Header().Set("Content-Type", "text/html; charset=utf-8")
	c.SetStatus(code)
	_, _ = c.ResponseWriter.Write(body)
}

func (c *Context) SetStatus(code int) {
	c.WriteHeader(code)
}

func (c *Context) SetHeader(key, value string) {
	c.ResponseWriter.Header().Set(key, value)
}

// QueryParam return the url query value of name
func (c *Context) QueryParam(name string) string {
	return c.Request.URL.Query().Get(name)
}

// IsForm report whether the body is an urlencoded or multipart form
func (c *Context) IsForm() bool {
	ct := c.Request.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// BodyJson decode the json body into a map
func (c *Context) BodyJson() (map[string]any, error) {
	defer c.Request.Body.Close()
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxBodySize))
	if err != nil {
		return nil, err
	}
	request := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&request); err != nil {
		return nil, errors.Wrap(err, "decode json body")
	}
	return request, nil
}

// BodyForm parse an urlencoded or multipart body
func (c *Context) BodyForm() (url.Values, error) {
	c.Request.Body = http.MaxBytesReader(c.ResponseWriter, c.Request.Body, MaxBodySize)
	if err := c.Request.ParseMultipartForm(MaxBodySize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	return c.Request.PostForm, nil
}

// Redirect redirect the client to the specified path with a custom code
func (c *Context) Redirect(path string, code int) {
	http.Redirect(c.ResponseWriter, c.Request, path, code)
}

// Download send data as an attachment named asFilename
func (c *Context) Download(data []byte, asFilename, contentType string) {
	c.ResponseWriter.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(asFilename))
	c.ResponseWriter.Header().Set("Content-Type", contentType)
	_, _ = c.ResponseWriter.Write(data)
}
