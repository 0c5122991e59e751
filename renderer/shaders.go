package renderer

// Fragment-shader sources for the GPU solver. Every pass renders a
// fullscreen triangle into a float target; texelSize converts between
// pixel and texture coordinates. Field textures store velocity in rg and
// dye in rgb.

const vertexSrc = `#version 330 core
out vec2 uv;
void main() {
	// Fullscreen triangle from gl_VertexID, no vertex buffer needed.
	vec2 pos = vec2((gl_VertexID << 1) & 2, gl_VertexID & 2);
	uv = pos;
	gl_Position = vec4(pos * 2.0 - 1.0, 0.0, 1.0);
}
`

// advectSrc backtraces along the velocity field and samples the source
// texture there. The backtrace is clamped to the interior so samples never
// leave the grid.
const advectSrc = `#version 330 core
in vec2 uv;
out vec4 fragColor;
uniform sampler2D velocity;
uniform sampler2D source;
uniform vec2 texelSize;
uniform vec2 gridSize;
uniform float dt;
uniform float dissipation;
uniform bool clampDye;
void main() {
	vec2 vel = texture(velocity, uv).xy;
	vec2 cell = uv * gridSize - 0.5;
	vec2 back = cell - dt * (gridSize - 2.0) * vel;
	back = clamp(back, vec2(0.5), gridSize - 1.5);
	vec2 backUV = (back + 0.5) * texelSize;
	vec4 v = dissipation * texture(source, backUV);
	if (clampDye) {
		v = clamp(v, vec4(0.0), vec4(255.0));
	}
	fragColor = v;
}
`

// jacobiSrc is one relaxation step, shared by diffusion (b = field,
// weight 1/1, alpha = 1/a) and the pressure solve (b = divergence,
// per-axis weights, alpha = -1).
const jacobiSrc = `#version 330 core
in vec2 uv;
out vec4 fragColor;
uniform sampler2D x;
uniform sampler2D b;
uniform vec2 texelSize;
uniform vec2 weight;
uniform float alpha;
uniform float rBeta;
void main() {
	vec4 xl = texture(x, uv - vec2(texelSize.x, 0.0));
	vec4 xr = texture(x, uv + vec2(texelSize.x, 0.0));
	vec4 xt = texture(x, uv - vec2(0.0, texelSize.y));
	vec4 xb = texture(x, uv + vec2(0.0, texelSize.y));
	vec4 bc = texture(b, uv);
	fragColor = (weight.x * (xl + xr) + weight.y * (xt + xb) + alpha * bc) * rBeta;
}
`

// divergenceSrc takes forward differences per axis; the matching backward
// differences live in gradientSrc, so the pair composes to the compact
// Laplacian the pressure jacobi relaxes.
const divergenceSrc = `#version 330 core
in vec2 uv;
out vec4 fragColor;
uniform sampler2D velocity;
uniform vec2 texelSize;
uniform vec2 invCell;
void main() {
	vec2 c = texture(velocity, uv).xy;
	float r = texture(velocity, uv + vec2(texelSize.x, 0.0)).x;
	float b = texture(velocity, uv + vec2(0.0, texelSize.y)).y;
	fragColor = vec4(invCell.x * (r - c.x) + invCell.y * (b - c.y), 0.0, 0.0, 1.0);
}
`

const gradientSrc = `#version 330 core
in vec2 uv;
out vec4 fragColor;
uniform sampler2D pressure;
uniform sampler2D velocity;
uniform vec2 texelSize;
uniform vec2 invCell;
void main() {
	float c = texture(pressure, uv).x;
	float l = texture(pressure, uv - vec2(texelSize.x, 0.0)).x;
	float t = texture(pressure, uv - vec2(0.0, texelSize.y)).x;
	vec2 vel = texture(velocity, uv).xy;
	vel -= invCell * vec2(c - l, c - t);
	fragColor = vec4(vel, 0.0, 1.0);
}
`

// forcesSrc applies the per-tick body forces: buoyancy from local dye
// density plus the constant drift.
const forcesSrc = `#version 330 core
in vec2 uv;
out vec4 fragColor;
uniform sampler2D velocity;
uniform sampler2D dye;
uniform float buoyancy;
uniform vec2 drift;
uniform float dt;
void main() {
	vec2 vel = texture(velocity, uv).xy;
	vec3 d = texture(dye, uv).rgb;
	float density = (d.r + d.g + d.b) / (3.0 * 255.0);
	vel.y += buoyancy * density * dt;
	vel += drift * dt;
	fragColor = vec4(vel, 0.0, 1.0);
}
`

// splatSrc adds a linear-falloff blob into the target field, used for both
// pointer force (into velocity) and dye injection.
const splatSrc = `#version 330 core
in vec2 uv;
out vec4 fragColor;
uniform sampler2D target;
uniform vec2 gridSize;
uniform vec2 center;
uniform float radius;
uniform vec3 amount;
void main() {
	vec4 base = texture(target, uv);
	vec2 cell = uv * gridSize - 0.5;
	float dist = length(cell - center);
	float falloff = max(0.0, 1.0 - dist / radius);
	fragColor = base + vec4(amount * falloff, 0.0);
}
`

// boundarySrc rewrites the outer ring: interior passthrough, edges copy
// the inner neighbor scaled by the reflection factor. farOffset is -1 for
// simulated fields and -2 for pressure, whose right/bottom ring skips the
// edge cell to mirror the CPU pressure fill.
const boundarySrc = `#version 330 core
in vec2 uv;
out vec4 fragColor;
uniform sampler2D field;
uniform vec2 texelSize;
uniform vec2 gridSize;
uniform vec4 hScale; // component scale at the left/right edges
uniform vec4 vScale; // component scale at the top/bottom edges
uniform vec2 farOffset;
void main() {
	vec2 cell = floor(uv * gridSize);
	vec2 offset = vec2(0.0);
	vec4 scale = vec4(1.0);
	if (cell.x < 0.5) { offset.x = 1.0; scale *= hScale; }
	else if (cell.x > gridSize.x - 1.5) { offset.x = farOffset.x; scale *= hScale; }
	if (cell.y < 0.5) { offset.y = 1.0; scale *= vScale; }
	else if (cell.y > gridSize.y - 1.5) { offset.y = farOffset.y; scale *= vScale; }
	fragColor = texture(field, uv + offset * texelSize) * scale;
}
`

// compositeSrc blends both dye layers over black, colors them through
// their 256x1 ramp textures and applies the optional edge feather.
const compositeSrc = `#version 330 core
in vec2 uv;
out vec4 fragColor;
uniform sampler2D dyeA;
uniform sampler2D dyeB;
uniform sampler2D rampA;
uniform sampler2D rampB;
uniform float opacityA;
uniform float opacityB;
uniform vec4 feather; // edge axis x/y in xy, band start in z, 1/width in w
uniform vec3 featherColor;
uniform bool featherOn;
void main() {
	vec3 da = texture(dyeA, uv).rgb;
	vec3 db = texture(dyeB, uv).rgb;
	float ta = clamp((da.r + da.g + da.b) / (3.0 * 255.0), 0.0, 1.0);
	float tb = clamp((db.r + db.g + db.b) / (3.0 * 255.0), 0.0, 1.0);
	vec3 ca = texture(rampA, vec2(ta, 0.5)).rgb;
	vec3 cb = texture(rampB, vec2(tb, 0.5)).rgb;
	vec3 col = ca * (ta * opacityA);
	float ab = tb * opacityB;
	col = col * (1.0 - ab) + cb * ab;
	if (featherOn) {
		float along = dot(uv, feather.xy);
		float t = clamp((along - feather.z) * feather.w, 0.0, 1.0);
		col = mix(col, featherColor, t);
	}
	fragColor = vec4(col, 1.0);
}
`
