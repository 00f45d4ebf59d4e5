// Package fixture serves small deterministic pages that exercise the timing
// behaviors the harness has to handle: late elements, elements that never
// appear, optional banners and spinners.
package fixture

import (
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxDelay = 60 * time.Second

var pages = template.Must(template.New("pages").Parse(`
{{define "delayed"}}<html><head><title>delayed</title></head><body>
<div id="container"></div>
<div id="result"></div>
<script>
setTimeout(function() {
	var c = document.getElementById("container");
	var input = document.createElement("input");
	input.type = "text";
	input.name = {{.Name}};
	c.appendChild(input);
	var button = document.createElement("button");
	button.id = "submit";
	button.textContent = "Submit";
	button.onclick = function() { document.getElementById("result").textContent = input.value; };
	c.appendChild(button);
}, {{.MS}});
</script>
</body></html>{{end}}

{{define "missing"}}<html><head><title>missing</title></head><body>
<p id="present">nothing else will ever show up here</p>
</body></html>{{end}}

{{define "optional"}}<html><head><title>optional</title></head><body>
{{if .Show}}<div id="banner"><div><div>Username Registration Failed</div></div><div><span id="close">x</span></div></div>{{end}}
<button id="continue">Continue</button>
<script>
var close = document.getElementById("close");
if (close) {
	close.onclick = function() {
		setTimeout(function() { document.getElementById("banner").style.display = "none"; }, 200);
	};
}
</script>
</body></html>{{end}}

{{define "spinner"}}<html><head><title>spinner</title></head><body>
<p id="spinner">Loading, please wait</p>
<script>
setTimeout(function() {
	document.getElementById("spinner").remove();
	var h = document.createElement("h1");
	h.textContent = "Ready";
	document.body.appendChild(h);
}, {{.MS}});
</script>
</body></html>{{end}}
`))

// NewRouter with every fixture route registered
func NewRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.SetHTMLTemplate(pages)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/delayed", delayed)
	router.GET("/missing", func(c *gin.Context) {
		c.HTML(http.StatusOK, "missing", nil)
	})
	router.GET("/optional", func(c *gin.Context) {
		c.HTML(http.StatusOK, "optional", gin.H{"Show": c.Query("show") == "1" || c.Query("show") == "true"})
	})
	router.GET("/spinner", func(c *gin.Context) {
		ms, err := delayParam(c, "1000")
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		c.HTML(http.StatusOK, "spinner", gin.H{"MS": ms})
	})
	return router
}

func delayed(c *gin.Context) {
	ms, err := delayParam(c, "1000")
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	c.HTML(http.StatusOK, "delayed", gin.H{"MS": ms, "Name": c.DefaultQuery("name", "username")})
}

func delayParam(c *gin.Context, def string) (int, error) {
	ms, err := strconv.Atoi(c.DefaultQuery("ms", def))
	if err != nil {
		return 0, errors.Wrap(err, "ms must be a number")
	}
	if ms < 0 || time.Duration(ms)*time.Millisecond > maxDelay {
		return 0, errors.Errorf("ms must be between 0 and %d", maxDelay.Milliseconds())
	}
	return ms, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("fixture request")
	}
}

// Serve the fixture pages on ln in the background. The returned server is
// shut down by the caller.
func Serve(ln net.Listener) *http.Server {
	srv := &http.Server{
		Addr:    ln.Addr().String(),
		Handler: NewRouter(),
	}
	go func() {
		if err := srv.Serve(ln); err != http.ErrServerClosed {
			log.Error().Err(err).Msg("fixture server stopped")
		}
	}()
	return srv
}

// Start listens on addr (":0" for a random port) and serves the fixture
// pages, returning the port in use
func Start(addr string) (string, *http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listening on %s", addr)
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	return port, Serve(ln), nil
}
