package glhost

// Shader sources for the pixelize blits

// Full-screen quad. flipY mirrors the texture vertically, used when
// presenting images uploaded top row first.
const quadVertexShaderSource = `
#version 410 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec2 aTexCoord;

uniform float flipY;

out vec2 TexCoord;

void main() {
    gl_Position = vec4(aPos, 0.0, 1.0);
    TexCoord = vec2(aTexCoord.x, mix(aTexCoord.y, 1.0 - aTexCoord.y, flipY));
}
`

// Pass 0: sample the source at the center of the block containing uv.
const quantizeFragmentShaderSource = `
#version 410 core
in vec2 TexCoord;
out vec4 FragColor;

uniform sampler2D mainTexture;
uniform vec2 blockCount;
uniform vec2 blockSize;
uniform vec2 halfBlockSize;

void main() {
    vec2 blockPos = floor(TexCoord * blockCount);
    vec2 blockCenter = blockPos * blockSize + halfBlockSize;
    FragColor = texture(mainTexture, blockCenter);
}
`

// Pass 1: plain copy.
const copyFragmentShaderSource = `
#version 410 core
in vec2 TexCoord;
out vec4 FragColor;

uniform sampler2D mainTexture;

void main() {
    FragColor = texture(mainTexture, TexCoord);
}
`
