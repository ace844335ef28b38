package extractor

import "testing"

func TestHTMLToText(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{
			name: "blocks and entities",
			in:   "<html><head><title>Verbale</title><style>p{color:red}</style></head><body><p>Caff&egrave; &amp; t&#232;</p><p>Seconda&nbsp;riga</p></body></html>",
			want: "Verbale\nCaffè & tè\nSeconda riga",
		},
		{
			name: "script removed and br kept",
			in:   "<div>uno<br/>due<script>alert('x')</script></div>",
			want: "uno\ndue",
		},
		{
			name: "source newlines are spacing",
			in:   "<p>parole\n   spezzate\n su righe</p>",
			want: "parole spezzate su righe",
		},
		{
			name: "table cells",
			in:   "<table><tr><td>a</td><td>b</td></tr><tr><td>c</td></tr></table>",
			want: "a b\nc",
		},
		{
			name: "empty document",
			in:   "<html><body><p>   </p></body></html>",
			want: "",
		},
	}
	for _, tc := range cases {
		if got := HTMLToText(tc.in); got != tc.want {
			t.Fatalf("%s: got=%q want=%q", tc.name, got, tc.want)
		}
	}
}
