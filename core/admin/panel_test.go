package admin_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/kamalshkeir/kadmin/core/admin"
)

func parseHTML(t *testing.T, b []byte) *html.Node {
	t.Helper()
	doc, err := html.Parse(bytes.NewReader(b))
	require.NoError(t, err)
	return doc
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var res []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			res = append(res, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return res
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var sb strings.Builder
	for _, t := range findAll(n, func(n *html.Node) bool { return n.Type == html.TextNode }) {
		sb.WriteString(t.Data)
	}
	return sb.String()
}

func element(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag }
}

var jane = admin.UserDescriptor{Data: admin.UserData{Name: "Jane Roe"}, LogoutURL: "/signout"}

func TestPanelRenderViews(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	for _, target := range []string{"/admin", "/admin/user", "/admin/user/1", "/admin/post/new"} {
		props, err := admin.GetProps(context.Background(), f.params(target))
		require.NoError(t, err)

		var buf bytes.Buffer
		panel := &admin.Panel{Props: props, Options: f.options, User: jane}
		require.NoError(t, panel.Render(&buf), target)
		doc := parseHTML(t, buf.Bytes())

		assert.Contains(t, text(doc), "Jane Roe", target)
		logout := findAll(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "a" && attr(n, "href") == "/signout"
		})
		assert.Len(t, logout, 1, target)
		assert.Len(t, findAll(doc, element("nav")), 1, target)
	}
}

func TestPanelListSanitizesRichText(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	props, err := admin.GetProps(context.Background(), f.params("/admin/user?page=2"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, (&admin.Panel{Props: props, Options: f.options, User: jane}).Render(&buf))
	doc := parseHTML(t, buf.Bytes())

	assert.Empty(t, findAll(doc, element("script")))
	bold := findAll(doc, element("b"))
	require.Len(t, bold, 1)
	assert.Equal(t, "bold", text(bold[0]))

	links := findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "a" && attr(n, "href") == "/admin/user/1"
	})
	assert.Len(t, links, 1)
}

func TestPanelForm(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	props, err := admin.GetProps(context.Background(), f.params("/admin/user/2"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, (&admin.Panel{Props: props, Options: f.options, User: jane}).Render(&buf))
	doc := parseHTML(t, buf.Bytes())

	forms := findAll(doc, element("form"))
	require.Len(t, forms, 2)
	assert.Equal(t, "/api/admin/user/2", attr(forms[0], "action"))
	methods := findAll(forms[1], func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "name") == "_method"
	})
	require.Len(t, methods, 1)
	assert.Equal(t, "DELETE", attr(methods[0], "value"))

	emails := findAll(forms[0], func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "name") == "email"
	})
	require.Len(t, emails, 1)
	assert.Equal(t, "bob@example.com", attr(emails[0], "value"))
}

func TestPanelRenderErrors(t *testing.T) {
	var buf bytes.Buffer
	err := (&admin.Panel{Props: admin.Props{View: "dashboard"}}).Render(&buf)
	assert.Error(t, err)
	err = (&admin.Panel{Props: admin.Props{View: "gallery"}, Options: &admin.Options{Title: "x"}}).Render(&buf)
	assert.Error(t, err)
}

func TestLoginPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, admin.LoginPage{Title: "Blog", Action: "/api/admin/auth/login", Error: "bad <credentials>"}.Render(&buf))
	doc := parseHTML(t, buf.Bytes())
	forms := findAll(doc, element("form"))
	require.Len(t, forms, 1)
	assert.Equal(t, "/api/admin/auth/login", attr(forms[0], "action"))
	assert.Contains(t, text(doc), "bad <credentials>")
}
