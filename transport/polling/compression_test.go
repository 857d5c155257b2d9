package polling

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NYTimes/gziphandler"
	"github.com/revived-midas/rust-soket-io/parser"
	"github.com/stretchr/testify/assert"
)

func TestGzip(t *testing.T) {
	h := http.HandlerFunc(loremIpsumHandler)
	gh, err := gziphandler.NewGzipLevelAndMinSize(gzip.DefaultCompression, 0 /* gzip everything */)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip")

	gh(h).ServeHTTP(rec, req)

	resp := rec.Result()
	defer func() {
		err = resp.Body.Close()
		assert.Nil(t, err, "resp.Body.Close() should not return error")
	}()

	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"), "Content-Encoding should be set to gzip")

	r, err := compressedReader(resp)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		err = r.Close()
		assert.Nil(t, err, "r.Close() should not return error")
	}()

	if _, ok := r.(*gzip.Reader); !ok {
		t.Fatal("*gzip.Reader expected")
	}

	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, loremIpsum, body, "the returned gzipped response should match the lorem ipsum text")
}

func TestUncompressedPassthrough(t *testing.T) {
	rec := httptest.NewRecorder()
	loremIpsumHandler(rec, httptest.NewRequest("GET", "/", nil))

	resp := rec.Result()
	defer resp.Body.Close()

	r, err := compressedReader(resp)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, ok := r.(*gzip.Reader); ok {
		t.Fatal("a plain response body should not be wrapped in a *gzip.Reader")
	}

	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, loremIpsum, body)
}

func TestGzippedPayloadDecode(t *testing.T) {
	packet, err := parser.NewPacket(parser.PacketTypeMessage, false, []byte("compressed"))
	if err != nil {
		t.Fatal(err)
	}

	payload := bytes.Buffer{}
	err = parser.EncodePayloads(&payload, packet)
	if err != nil {
		t.Fatal(err)
	}

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload.Bytes())
	})
	gh, err := gziphandler.NewGzipLevelAndMinSize(gzip.DefaultCompression, 0)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	gh(h).ServeHTTP(rec, req)

	resp := rec.Result()
	defer resp.Body.Close()

	r, err := compressedReader(resp)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	packets, err := parser.DecodePayloads(r)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, 1, len(packets))
	assert.Equal(t, parser.PacketTypeMessage, packets[0].Type)
	assert.Equal(t, []byte("compressed"), packets[0].Data)
}

var loremIpsum = []byte("Lorem ipsum dolor sit amet, consectetur adipiscing elit. Suspendisse placerat magna a vulputate lobortis. Vestibulum auctor sapien purus, sit amet blandit lectus semper id. Pellentesque aliquet, libero ac blandit consectetur, risus erat egestas lacus, et ullamcorper magna turpis id quam. Aenean ornare ex quis ante ullamcorper facilisis. Fusce pretium lacus in nunc viverra hendrerit. Mauris a leo leo. Ut tincidunt varius urna et mollis. Proin fermentum turpis at posuere condimentum. Aenean mollis varius orci eget suscipit. Integer luctus erat ligula, quis aliquet elit euismod et.")

func loremIpsumHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(200)
	w.Write(loremIpsum)
}
