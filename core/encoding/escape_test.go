package encoding

import "testing"

func TestEscapeXMLText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"$1 billion", "$1 billion"},
		{"a < b & c > d", "a &lt; b &amp; c &gt; d"},
		{`"quoted"`, `"quoted"`},
		{"&amp;", "&amp;amp;"},
	}
	for _, tt := range tests {
		if got := EscapeXMLText(tt.in); got != tt.want {
			t.Errorf("EscapeXMLText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeXMLAttr(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"#arrow-0-1", "#arrow-0-1"},
		{`say "hi"`, "say &quot;hi&quot;"},
		{"a\tb\nc", "a&#x9;b&#xA;c"},
		{"<&>", "&lt;&amp;&gt;"},
	}
	for _, tt := range tests {
		if got := EscapeXMLAttr(tt.in); got != tt.want {
			t.Errorf("EscapeXMLAttr(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeHTML(t *testing.T) {
	got := EscapeHTML(`<b class="x">Tom's & Jerry</b>`)
	want := "&lt;b class=&quot;x&quot;&gt;Tom&#x27;s &amp; Jerry&lt;/b&gt;"
	if got != want {
		t.Errorf("EscapeHTML() = %q, want %q", got, want)
	}
}
