package gldevice

const terrainVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;

uniform mat4 uViewProj;
uniform vec3 uOrigin;
uniform float uSectionSize;

out vec3 vNormal;
out vec3 vWorld;
out vec2 vUV;

void main() {
	vec3 world = aPos + uOrigin;
	vWorld = world;
	vNormal = aNormal;
	vUV = aPos.xy / uSectionSize;
	gl_Position = uViewProj * vec4(world, 1.0);
}
`

const terrainFragmentShader = `
#version 410 core

in vec3 vNormal;
in vec3 vWorld;
in vec2 vUV;

uniform sampler2D uSplat;
uniform int uHasSplat;
uniform int uLOD;
uniform vec3 uCamera;
uniform vec3 uLightDir;

out vec4 FragColor;

const vec3 lodTint[4] = vec3[](
	vec3(0.45, 0.60, 0.35),
	vec3(0.50, 0.55, 0.40),
	vec3(0.55, 0.50, 0.45),
	vec3(0.60, 0.45, 0.50)
);

void main() {
	vec3 base = lodTint[clamp(uLOD, 0, 3)];
	if (uHasSplat != 0) {
		vec4 w = texture(uSplat, vUV);
		base = mix(base, vec3(0.55, 0.50, 0.40), w.g);
		base = mix(base, vec3(0.70, 0.70, 0.72), w.b);
		base = mix(base, vec3(0.90, 0.90, 0.95), w.a);
	}
	float diffuse = max(dot(normalize(vNormal), uLightDir), 0.0);
	float fog = clamp(length(uCamera - vWorld) / 8000.0, 0.0, 1.0);
	vec3 color = base * (0.35 + 0.65 * diffuse);
	FragColor = vec4(mix(color, vec3(0.10, 0.10, 0.15), fog), 1.0);
}
`
