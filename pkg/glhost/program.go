package glhost

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

type program struct {
	id            uint32
	mainTexture   int32
	flipY         int32
	blockCount    int32
	blockSize     int32
	halfBlockSize int32
}

func newProgram(vertexSource, fragmentSource string) (*program, error) {
	id, err := createShaderProgram(vertexSource, fragmentSource)
	if err != nil {
		return nil, err
	}
	return &program{
		id:            id,
		mainTexture:   uniform(id, "mainTexture"),
		flipY:         uniform(id, "flipY"),
		blockCount:    uniform(id, "blockCount"),
		blockSize:     uniform(id, "blockSize"),
		halfBlockSize: uniform(id, "halfBlockSize"),
	}, nil
}

// uniform returns -1 for names the program does not use; setting -1 is a
// no-op in GL.
func uniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (p *program) delete() {
	if p != nil && p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

// createShaderProgram compiles and links a shader program from source
func createShaderProgram(vertexSource, fragmentSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}

	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))

		gl.DeleteProgram(program)
		gl.DeleteShader(vertexShader)
		gl.DeleteShader(fragmentShader)

		return 0, fmt.Errorf("shader program linking failed: %v", log)
	}

	gl.DetachShader(program, vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	return program, nil
}

// compileShader compiles a shader from source
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))

		gl.DeleteShader(shader)

		return 0, fmt.Errorf("shader compilation failed: %v", log)
	}

	return shader, nil
}
