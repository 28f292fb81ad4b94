package rewrite

import (
	"fmt"
	"strings"
)

// shimMarker identifies an already-injected shim so repeated rewriting
// never stacks duplicates.
const shimMarker = `data-preview-shim`

// shimTemplate is the compatibility shim injected into every proxied HTML
// document. It patches the runtime asset base used by module loaders, wraps
// fetch so dynamically loaded chunks route through the proxy, and redirects
// WebSocket connections aimed at the backing origin to the page's own host.
//
// Arguments: 1=base path, 2=origin host (may be empty).
const shimTemplate = `<script %s="1">(function(){
if(window.__previewShimInstalled)return;
window.__previewShimInstalled=true;
var base=%q;
var originHost=%q;
window.__PREVIEW_BASE_PATH__=base;
window.__webpack_public_path__=base+"/";
function reroute(u){
  if(typeof u!=="string"||u==="")return u;
  if(base&&(u===base||u.indexOf(base+"/")===0))return u;
  if(u.charAt(0)==="/"&&u.charAt(1)!=="/")return base+u;
  if(originHost){
    try{
      var abs=new URL(u,window.location.href);
      if(abs.host===originHost)return base+abs.pathname+abs.search+abs.hash;
    }catch(e){}
  }
  return u;
}
if(window.fetch){
  var nativeFetch=window.fetch;
  window.fetch=function(input,init){
    if(typeof input==="string")return nativeFetch.call(this,reroute(input),init);
    if(input&&typeof input.url==="string"){
      var rerouted=reroute(input.url);
      if(rerouted!==input.url)return nativeFetch.call(this,new Request(rerouted,input),init);
    }
    return nativeFetch.call(this,input,init);
  };
}
if(window.WebSocket){
  var NativeWS=window.WebSocket;
  var PatchedWS=function(url,protocols){
    try{
      var abs=new URL(url,window.location.href);
      if(originHost&&abs.host===originHost){
        var scheme=window.location.protocol==="https:"?"wss:":"ws:";
        url=scheme+"//"+window.location.host+base+abs.pathname+abs.search;
      }
    }catch(e){}
    return protocols===undefined?new NativeWS(url):new NativeWS(url,protocols);
  };
  PatchedWS.prototype=NativeWS.prototype;
  PatchedWS.CONNECTING=NativeWS.CONNECTING;
  PatchedWS.OPEN=NativeWS.OPEN;
  PatchedWS.CLOSING=NativeWS.CLOSING;
  PatchedWS.CLOSED=NativeWS.CLOSED;
  window.WebSocket=PatchedWS;
}
})();</script>`

// Shim renders the compatibility shim for a base path and origin host.
func Shim(basePath, originHost string) string {
	return fmt.Sprintf(shimTemplate, shimMarker, basePath, originHost)
}

// injectShim inserts the shim into the document. Preferred injection point
// is before </head>, then before </body>; a document with neither gets the
// shim appended at the end rather than dropped.
func (rw *Rewriter) injectShim(html string) string {
	if strings.Contains(html, shimMarker) {
		return html
	}
	originHost := ""
	if rw.origin != nil {
		originHost = rw.origin.Host
	}
	return InjectScript(html, Shim(rw.BasePath, originHost))
}

// InjectScript places a script block into an HTML document, preferring
// </head>, then </body>, then appending. Shared with inspection mode.
func InjectScript(html, script string) string {
	for _, closer := range []string{"</head>", "</body>"} {
		if idx := strings.Index(strings.ToLower(html), closer); idx != -1 {
			return html[:idx] + script + html[idx:]
		}
	}
	return html + script
}
