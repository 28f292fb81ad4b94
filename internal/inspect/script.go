package inspect

// messageTypeSelected and messageTypeDegraded are the postMessage event
// types the host application listens for.
const (
	messageTypeSelected = "preview:element-selected"
	messageTypeDegraded = "preview:inspection-degraded"
)

// clickCaptureScript wires the annotated document for selection: hover
// highlighting, click interception, and a postMessage to the embedding
// frame carrying the element's metadata enriched with live geometry.
const clickCaptureScript = `<script data-inspect-runtime="1">(function(){
var HIGHLIGHT_STYLE="outline:2px solid #6366f1;outline-offset:1px;cursor:crosshair;";
var style=document.createElement("style");
style.textContent="[data-inspect-id]:hover{"+HIGHLIGHT_STYLE+"}";
document.head?document.head.appendChild(style):document.documentElement.appendChild(style);

function metaFor(el){
  var raw=el.getAttribute("data-inspect-meta");
  var meta;
  try{meta=JSON.parse(raw)}catch(e){meta={id:el.getAttribute("data-inspect-id")}}
  var rect=el.getBoundingClientRect();
  meta.bounding_rect={x:rect.x,y:rect.y,width:rect.width,height:rect.height};
  try{
    var cs=window.getComputedStyle(el);
    meta.computed={display:cs.display,position:cs.position,color:cs.color,background:cs.backgroundColor,font_size:cs.fontSize};
  }catch(e){}
  meta.disabled=el.hasAttribute("disabled")||el.getAttribute("aria-disabled")==="true";
  meta.expanded=el.getAttribute("aria-expanded");
  meta.document_path=window.location.pathname;
  return meta;
}

document.addEventListener("click",function(ev){
  var el=ev.target&&ev.target.closest?ev.target.closest("[data-inspect-id]"):null;
  if(!el)return;
  ev.preventDefault();
  ev.stopPropagation();
  window.parent.postMessage({type:%q,element:metaFor(el)},"*");
},true);

document.addEventListener("submit",function(ev){ev.preventDefault()},true);
})();</script>`

// degradedNoticeScript tells the embedding frame that annotation failed and
// the document is being shown as-is.
const degradedNoticeScript = `<script data-inspect-runtime="1">(function(){
window.parent.postMessage({type:%q,reason:%q},"*");
})();</script>`
